package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// ErrInvalidSetting marks an update that names an unknown key or a non-string value.
var ErrInvalidSetting = errors.New("invalid setting")

// FlowSettings is the [flow] section of the settings file.
type FlowSettings struct {
	SessionToken string `toml:"session_token" json:"session_token"`
	CSRFToken    string `toml:"csrf_token" json:"csrf_token"`
}

// GlobalSettings is the [global] section of the settings file.
type GlobalSettings struct {
	BaseURL       string `toml:"base_url" json:"base_url"`
	LogLevel      string `toml:"log_level" json:"log_level"`
	AdminUsername string `toml:"admin_username" json:"admin_username"`
	AdminPassword string `toml:"admin_password" json:"admin_password"`
}

// Settings is the full runtime-editable document.
type Settings struct {
	Flow   FlowSettings   `toml:"flow" json:"flow"`
	Global GlobalSettings `toml:"global" json:"global"`
}

// DefaultSettings returns the document written on first start.
func DefaultSettings() Settings {
	return Settings{
		Global: GlobalSettings{
			BaseURL:       "http://localhost:8000",
			LogLevel:      "INFO",
			AdminUsername: "admin",
			AdminPassword: "admin",
		},
	}
}

// SettingsStore persists Settings as TOML and serves the current copy from memory.
// Reads are pull based: callers ask for the current values on every use.
type SettingsStore struct {
	path string
	mu   sync.RWMutex
	cur  Settings
}

// NewSettingsStore loads path, creating it with defaults if it does not exist.
func NewSettingsStore(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path}
	if err := s.ensureExists(); err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SettingsStore) ensureExists() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return writeSettings(s.path, DefaultSettings())
}

// Reload re-reads the settings file. Sections missing from the file keep their defaults.
func (s *SettingsStore) Reload() error {
	loaded := DefaultSettings()
	if _, err := toml.DecodeFile(s.path, &loaded); err != nil {
		return fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.cur = loaded
	s.mu.Unlock()
	return nil
}

// Current returns a copy of the loaded settings.
func (s *SettingsStore) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Flow returns the [flow] section.
func (s *SettingsStore) Flow() FlowSettings {
	return s.Current().Flow
}

// Global returns the [global] section.
func (s *SettingsStore) Global() GlobalSettings {
	return s.Current().Global
}

// Update merges the given key/value maps into their sections and persists the result.
// Unknown keys are rejected so typos do not silently disappear.
func (s *SettingsStore) Update(global, flow map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	for key, value := range global {
		str, err := stringValue(key, value)
		if err != nil {
			return err
		}
		switch key {
		case "base_url":
			next.Global.BaseURL = str
		case "log_level":
			next.Global.LogLevel = str
		case "admin_username":
			next.Global.AdminUsername = str
		case "admin_password":
			next.Global.AdminPassword = str
		default:
			return fmt.Errorf("%w: unknown global setting %q", ErrInvalidSetting, key)
		}
	}
	for key, value := range flow {
		str, err := stringValue(key, value)
		if err != nil {
			return err
		}
		switch key {
		case "session_token":
			next.Flow.SessionToken = str
		case "csrf_token":
			next.Flow.CSRFToken = str
		default:
			return fmt.Errorf("%w: unknown flow setting %q", ErrInvalidSetting, key)
		}
	}

	if err := writeSettings(s.path, next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

func stringValue(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidSetting, key)
	}
}

func writeSettings(path string, settings Settings) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create settings file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(settings); err != nil {
		f.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	return os.Rename(tmp, path)
}

// MaskSecret hides all but the last four characters of a secret for display.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", 8) + value[len(value)-4:]
}
