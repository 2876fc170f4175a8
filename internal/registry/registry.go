package registry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"bifrost/internal/domain"
)

// Entry pairs a service definition with its live health state.
//
// The definition is immutable once the entry is published in a snapshot;
// the health cell is the only mutable part and has its own lock, so a
// health update never invalidates concurrent readers of the snapshot.
type Entry struct {
	Definition domain.ServiceDefinition
	health     *healthCell
}

// Health returns the current health sub-record.
func (e *Entry) Health() domain.HealthState {
	e.health.mu.RLock()
	defer e.health.mu.RUnlock()
	return e.health.state
}

type healthCell struct {
	mu    sync.RWMutex
	state domain.HealthState
}

func newHealthCell() *healthCell {
	return &healthCell{state: domain.HealthState{Status: domain.HealthUnknown}}
}

type snapshot struct {
	entries  map[string]*Entry
	loadedAt time.Time
}

// Registry is the authoritative in-memory view of registered services.
//
// Reads go through an atomic snapshot pointer and never block. Replace
// swaps the whole snapshot; UpdateHealth mutates a single entry's health
// cell in place. Replace calls are serialized against each other.
type Registry struct {
	snap atomic.Pointer[snapshot]
	mu   sync.Mutex // serializes Replace
}

// New creates an empty registry. It serves lookups immediately but reports
// Loaded() == false until the first Replace.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(&snapshot{entries: map[string]*Entry{}})
	return r
}

// Replace atomically swaps the registry content with defs.
//
// Health state is preserved for services that stay active with an unchanged
// probe target; everything else starts over at unknown. Removed services
// are dropped along with their health state.
func (r *Registry) Replace(defs []domain.ServiceDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.snap.Load()
	entries := make(map[string]*Entry, len(defs))
	for _, def := range defs {
		cell := newHealthCell()
		if prev, ok := old.entries[def.Name]; ok &&
			prev.Definition.IsActive && def.IsActive &&
			prev.Definition.SameProbeTarget(def) {
			cell = prev.health
		}
		entries[def.Name] = &Entry{Definition: def, health: cell}
	}
	r.snap.Store(&snapshot{entries: entries, loadedAt: time.Now()})
}

// Lookup returns the entry for name. Absent and inactive services are
// indistinguishable: both yield ErrServiceNotFound.
func (r *Registry) Lookup(name string) (*Entry, error) {
	e, ok := r.snap.Load().entries[name]
	if !ok || !e.Definition.IsActive {
		return nil, domain.ErrServiceNotFound
	}
	return e, nil
}

// ListActive returns the active entries of the current snapshot, sorted by
// name. The slice is a fresh copy; iterating it is unaffected by concurrent
// reloads.
func (r *Registry) ListActive() []*Entry {
	snap := r.snap.Load()
	entries := make([]*Entry, 0, len(snap.entries))
	for _, e := range snap.entries {
		if e.Definition.IsActive {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Definition.Name < entries[j].Definition.Name
	})
	return entries
}

// All returns every entry of the current snapshot, inactive ones included,
// sorted by name. Used by the administrative listing, not the proxy path.
func (r *Registry) All() []*Entry {
	snap := r.snap.Load()
	entries := make([]*Entry, 0, len(snap.entries))
	for _, e := range snap.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Definition.Name < entries[j].Definition.Name
	})
	return entries
}

// UpdateHealth sets the health status of one entry in place. A zero
// checkedAt keeps the previous probe timestamp, which lets the monitor mark
// an entry as checking without touching LastCheckedAt. Returns false when
// the service is no longer in the current snapshot.
func (r *Registry) UpdateHealth(name string, status domain.HealthStatus, checkedAt time.Time) bool {
	e, ok := r.snap.Load().entries[name]
	if !ok {
		return false
	}
	e.health.mu.Lock()
	e.health.state.Status = status
	if !checkedAt.IsZero() {
		e.health.state.LastCheckedAt = checkedAt
	}
	e.health.mu.Unlock()
	return true
}

// Count returns the number of entries in the current snapshot.
func (r *Registry) Count() int {
	return len(r.snap.Load().entries)
}

// LastReload returns when the current snapshot was installed.
func (r *Registry) LastReload() time.Time {
	return r.snap.Load().loadedAt
}

// Loaded reports whether Replace has run at least once.
func (r *Registry) Loaded() bool {
	return !r.snap.Load().loadedAt.IsZero()
}
