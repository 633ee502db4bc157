package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FLOW_SESSION_TOKEN", "  session-from-env  ")
	t.Setenv("API_KEYS", "key-a, ,key-b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceName != "flow-api" {
		t.Errorf("ServiceName = %q, want flow-api", cfg.ServiceName)
	}
	if cfg.RetryBaseDelay != 5*time.Second {
		t.Errorf("RetryBaseDelay = %v, want 5s", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", cfg.RetryMaxAttempts)
	}
	if cfg.FlowSessionToken != "session-from-env" {
		t.Errorf("FlowSessionToken = %q, want trimmed value", cfg.FlowSessionToken)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[0] != "key-a" || cfg.APIKeys[1] != "key-b" {
		t.Errorf("APIKeys = %v, want [key-a key-b]", cfg.APIKeys)
	}
	if got := cfg.UploadCachePath(); !strings.HasSuffix(got, "image_upload_cache.json") {
		t.Errorf("UploadCachePath() = %q", got)
	}
}

func TestLoad_RedisBackendRequiresURL(t *testing.T) {
	t.Setenv("UPLOAD_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when REDIS_URL is missing")
	}
}

func TestSettingsStore_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "setting.toml")

	store, err := NewSettingsStore(path)
	if err != nil {
		t.Fatalf("NewSettingsStore() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file was not created: %v", err)
	}
	global := store.Global()
	if global.AdminUsername != "admin" || global.AdminPassword != "admin" {
		t.Errorf("unexpected default admin credentials: %+v", global)
	}
	if store.Flow().SessionToken != "" {
		t.Errorf("default session token should be empty")
	}
}

func TestSettingsStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.toml")
	store, err := NewSettingsStore(path)
	if err != nil {
		t.Fatalf("NewSettingsStore() error = %v", err)
	}

	err = store.Update(
		map[string]any{"log_level": "DEBUG"},
		map[string]any{"session_token": "abc", "csrf_token": "xyz"},
	)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reopened, err := NewSettingsStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	current := reopened.Current()
	if current.Flow.SessionToken != "abc" || current.Flow.CSRFToken != "xyz" {
		t.Errorf("flow section not persisted: %+v", current.Flow)
	}
	if current.Global.LogLevel != "DEBUG" {
		t.Errorf("log level = %q, want DEBUG", current.Global.LogLevel)
	}
	if current.Global.AdminUsername != "admin" {
		t.Errorf("untouched keys must keep their values, got %+v", current.Global)
	}
}

func TestSettingsStore_UpdateRejectsUnknownKeys(t *testing.T) {
	store, err := NewSettingsStore(filepath.Join(t.TempDir(), "setting.toml"))
	if err != nil {
		t.Fatalf("NewSettingsStore() error = %v", err)
	}
	if err := store.Update(nil, map[string]any{"cf_clearance": "x"}); err == nil {
		t.Fatal("expected unknown key error")
	}
	if err := store.Update(map[string]any{"log_level": 3}, nil); err == nil {
		t.Fatal("expected non-string value error")
	}
}

func TestSettingsStore_MissingSectionKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.toml")
	if err := os.WriteFile(path, []byte("[flow]\nsession_token = \"tok\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewSettingsStore(path)
	if err != nil {
		t.Fatalf("NewSettingsStore() error = %v", err)
	}
	if store.Flow().SessionToken != "tok" {
		t.Errorf("session token = %q", store.Flow().SessionToken)
	}
	if store.Global().AdminUsername != "admin" {
		t.Errorf("global defaults not applied: %+v", store.Global())
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcdefgh", "********efgh"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
