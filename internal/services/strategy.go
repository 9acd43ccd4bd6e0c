package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// Backend is the capability every insight strategy implements. The two
// variants (direct provider, authenticated proxy) are interchangeable at
// runtime; callers select one through the Registry.
type Backend interface {
	GenerateInsight(ctx context.Context, req *models.AnalysisRequest, cfg models.AnalysisConfig) *models.InsightResult
	IsConfigured() bool
	ConfigurationStatus() models.BackendStatus
	Kind() models.BackendKind
}

// Registry holds the available backends and the default selection.
type Registry struct {
	backends    map[models.BackendKind]Backend
	defaultKind models.BackendKind
}

func NewRegistry(defaultKind models.BackendKind, backends ...Backend) *Registry {
	r := &Registry{
		backends:    make(map[models.BackendKind]Backend, len(backends)),
		defaultKind: defaultKind,
	}
	for _, b := range backends {
		r.backends[b.Kind()] = b
	}
	return r
}

// Select returns the backend for kind, or the default when kind is empty.
func (r *Registry) Select(kind string) (Backend, error) {
	k := models.BackendKind(kind)
	if kind == "" {
		k = r.defaultKind
	}
	backend, ok := r.backends[k]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
	return backend, nil
}

// Statuses reports the configuration status of every registered backend.
func (r *Registry) Statuses() []models.BackendStatus {
	statuses := make([]models.BackendStatus, 0, len(r.backends))
	for _, b := range r.backends {
		statuses = append(statuses, b.ConfigurationStatus())
	}
	return statuses
}

// AuthEvent is published when a backend call is rejected with 401/403 so the
// owning session can react (e.g. trigger a re-login) without the adapters
// holding a process-global callback.
type AuthEvent struct {
	Backend    models.BackendKind
	StatusCode int
	Timestamp  time.Time
}

// AuthEvents is a small observer hub scoped to the session lifetime.
// Publish never blocks: slow subscribers miss events rather than stalling
// the analysis path.
type AuthEvents struct {
	mu     sync.Mutex
	subs   []chan AuthEvent
	closed bool
}

func NewAuthEvents() *AuthEvents {
	return &AuthEvents{}
}

// Subscribe returns a channel receiving future auth events. The channel is
// closed when the hub closes.
func (e *AuthEvents) Subscribe() <-chan AuthEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan AuthEvent, 8)
	if e.closed {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	return ch
}

// Publish delivers ev to all current subscribers without blocking.
func (e *AuthEvents) Publish(ev AuthEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes all subscriber channels. Further publishes are dropped.
func (e *AuthEvents) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
}
