package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Registry owns all live sessions. Unknown-session operations log a warning
// and return without effect; the pipeline treats them as races with
// disconnect, not errors.
type Registry struct {
	logger     *slog.Logger
	defaults   map[string]string
	historyCap int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a registry. defaults holds the process-wide credential
// values keyed by upper-case name; historyCap bounds each session's
// conversation log, zero means unbounded.
func NewRegistry(logger *slog.Logger, defaults map[string]string, historyCap int) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	folded := make(map[string]string, len(defaults))
	for k, v := range defaults {
		if v != "" {
			folded[strings.ToUpper(k)] = v
		}
	}
	return &Registry{
		logger:     logger,
		defaults:   folded,
		historyCap: historyCap,
		sessions:   make(map[string]*Session),
	}
}

// Create registers a new session bound to the given transport. An existing
// session with the same id is replaced.
func (r *Registry) Create(id string, out Transport) *Session {
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		out:        out,
		historyCap: r.historyCap,
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the session or nil.
func (r *Registry) Lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Destroy removes and returns the session, or nil when unknown.
func (r *Registry) Destroy(id string) *Session {
	r.mu.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if s == nil {
		r.logger.Warn("destroy for unknown session", "session_id", id)
	}
	return s
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns a snapshot of live session ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// SetCredentialOverrides installs per-session credential values. Key names
// are upper-cased; entries that are not non-empty strings are dropped. The
// stored map is replaced, not merged.
func (r *Registry) SetCredentialOverrides(id string, keys map[string]any) {
	s := r.Lookup(id)
	if s == nil {
		r.logger.Warn("set keys for unknown session", "session_id", id)
		return
	}
	filtered := make(map[string]string, len(keys))
	for k, v := range keys {
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		filtered[strings.ToUpper(k)] = str
	}
	s.setOverrides(filtered)
	r.logger.Info("session credential overrides updated",
		"session_id", id, "keys", len(filtered))
}

// ResolveCredential returns the effective value for name: the session
// override if present, else the process default, else empty.
func (r *Registry) ResolveCredential(id, name string) string {
	name = strings.ToUpper(name)
	if s := r.Lookup(id); s != nil {
		if v, ok := s.override(name); ok {
			return v
		}
	}
	return r.defaults[name]
}
