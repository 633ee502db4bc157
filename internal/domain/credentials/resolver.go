package credentials

import (
	"context"
	"sort"
	"strings"

	"jan-server/services/flow-api/internal/domain/flow"
)

// Kind selects which secret to resolve.
type Kind string

const (
	KindSession Kind = "session"
	KindCSRF    Kind = "csrf"
)

// Source is one layer of credential configuration. Lower Priority values are
// consulted first.
type Source interface {
	Lookup(kind Kind) (string, bool)
	Priority() int
	Name() string
}

// Priority levels for the built-in sources.
const (
	PrioritySettings = 100
	PriorityEnv      = 200
)

// Resolver walks its sources in priority order; the first non-empty trimmed
// value wins.
type Resolver struct {
	sources []Source
}

// NewResolver orders sources by priority. Sources with equal priority keep
// the order they were given in.
func NewResolver(sources ...Source) *Resolver {
	ordered := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return &Resolver{sources: ordered}
}

// Resolve returns the secret of the given kind or "" when no source has one.
func (r *Resolver) Resolve(kind Kind) string {
	for _, source := range r.sources {
		value, ok := source.Lookup(kind)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

// Credentials resolves both secrets. It never fails; see RequireSession.
func (r *Resolver) Credentials(_ context.Context) flow.Credentials {
	return flow.Credentials{
		SessionToken: r.Resolve(KindSession),
		CSRFToken:    r.Resolve(KindCSRF),
	}
}

// RequireSession resolves credentials and rejects an empty session token.
func (r *Resolver) RequireSession(ctx context.Context) (flow.Credentials, error) {
	creds := r.Credentials(ctx)
	if creds.SessionToken == "" {
		return creds, flow.NewError(flow.KindMissingCredential, "resolve_credentials",
			"session token is not configured; set it in the admin settings or FLOW_SESSION_TOKEN")
	}
	return creds, nil
}

// SourceNames lists the configured sources in lookup order.
func (r *Resolver) SourceNames() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}
