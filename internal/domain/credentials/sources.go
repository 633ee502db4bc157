package credentials

import (
	"jan-server/services/flow-api/internal/config"
)

// FlowSettingsReader exposes the [flow] section of the runtime settings.
type FlowSettingsReader interface {
	Flow() config.FlowSettings
}

// SettingsSource reads the admin-editable settings on every lookup so a
// settings reload applies to the next request.
type SettingsSource struct {
	store FlowSettingsReader
}

func NewSettingsSource(store FlowSettingsReader) *SettingsSource {
	return &SettingsSource{store: store}
}

func (s *SettingsSource) Lookup(kind Kind) (string, bool) {
	if s.store == nil {
		return "", false
	}
	flow := s.store.Flow()
	switch kind {
	case KindSession:
		return flow.SessionToken, true
	case KindCSRF:
		return flow.CSRFToken, true
	}
	return "", false
}

func (s *SettingsSource) Priority() int { return PrioritySettings }
func (s *SettingsSource) Name() string  { return "settings" }

// EnvSource serves FLOW_SESSION_TOKEN / FLOW_CSRF_TOKEN as parsed at startup.
type EnvSource struct {
	session string
	csrf    string
}

func NewEnvSource(cfg *config.Config) *EnvSource {
	return &EnvSource{session: cfg.FlowSessionToken, csrf: cfg.FlowCSRFToken}
}

func (s *EnvSource) Lookup(kind Kind) (string, bool) {
	switch kind {
	case KindSession:
		return s.session, s.session != ""
	case KindCSRF:
		return s.csrf, s.csrf != ""
	}
	return "", false
}

func (s *EnvSource) Priority() int { return PriorityEnv }
func (s *EnvSource) Name() string  { return "env" }

// StaticSource is a fixed pair of values, used by the CLI flags.
type StaticSource struct {
	Values map[Kind]string
	Order  int
	Label  string
}

func (s StaticSource) Lookup(kind Kind) (string, bool) {
	v, ok := s.Values[kind]
	return v, ok
}

func (s StaticSource) Priority() int { return s.Order }
func (s StaticSource) Name() string  { return s.Label }
