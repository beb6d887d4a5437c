package settings

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nulzo/concierge-bot/internal/core/domain"
)

// Persister stores a setting durably before an update is considered
// applied. Satisfied by the store-layer settings repository.
type Persister interface {
	SetSetting(ctx context.Context, key, value string) error
}

// Store holds the single live configuration snapshot. Reads are
// lock-free; writers serialize on a mutex and publish a fresh copy, so
// concurrent readers always observe either the old or the new snapshot,
// never a partial one.
type Store struct {
	mu      sync.Mutex
	snap    atomic.Pointer[Snapshot]
	persist Persister
}

// NewStore creates a Store around an initial snapshot. persist may be
// nil, in which case updates are memory-only.
func NewStore(initial *Snapshot, persist Persister) *Store {
	st := &Store{persist: persist}
	snap := *initial
	st.snap.Store(&snap)
	return st
}

// Snapshot returns the current configuration. Callers must treat the
// result as read-only.
func (st *Store) Snapshot() *Snapshot {
	return st.snap.Load()
}

// Update validates rawInput for key, persists the canonical value, then
// swaps in a new snapshot. At most one mutation is applied: any failure
// leaves the observable state unchanged.
func (st *Store) Update(ctx context.Context, key, rawInput string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	spec, ok := Lookup(key)
	if !ok {
		return domain.Validation("unknown setting: %s", key)
	}

	value, err := Validate(spec, rawInput)
	if err != nil {
		return err
	}

	if st.persist != nil {
		if err := st.persist.SetSetting(ctx, key, value.Encode()); err != nil {
			return err
		}
	}

	next := *st.snap.Load()
	spec.assign(&next, value)
	st.snap.Store(&next)
	return nil
}

// ApplyOverrides validates and applies a set of raw key/value overrides
// (persisted settings fetched at boot) onto the current snapshot in one
// swap. Unknown keys and invalid values are reported via onError and
// skipped, so one stale row cannot block startup.
func (st *Store) ApplyOverrides(raw map[string]string, onError func(key string, err error)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := *st.snap.Load()
	for key, rawValue := range raw {
		spec, ok := Lookup(key)
		if !ok {
			if onError != nil {
				onError(key, domain.Validation("unknown setting: %s", key))
			}
			continue
		}
		value, err := Validate(spec, rawValue)
		if err != nil {
			if onError != nil {
				onError(key, err)
			}
			continue
		}
		spec.assign(&next, value)
	}
	st.snap.Store(&next)
}

// Entry is one row of the rendered configuration view.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// View renders the snapshot as ordered display strings. List values are
// comma-joined; empty values render as "-"; secret values are masked
// unless masked is false.
func (st *Store) View(masked bool) []Entry {
	snap := st.snap.Load()
	entries := make([]Entry, 0, len(registry))
	for i := range registry {
		spec := &registry[i]
		value := spec.display(snap)
		if spec.Secret && masked {
			value = MaskSecret(value)
		}
		if value == "" {
			value = "-"
		}
		entries = append(entries, Entry{Key: spec.Key, Value: value})
	}
	return entries
}

// MaskSecret renders a secret as its first three and last three
// characters around a fixed "***", or "-" when empty. Short values
// overlap rather than leak length information.
func MaskSecret(v string) string {
	if v == "" {
		return "-"
	}
	head, tail := v, v
	if len(v) > 3 {
		head = v[:3]
		tail = v[len(v)-3:]
	}
	return head + "***" + tail
}

// EncodedDefaults returns every setting's default value in canonical
// string form, used to seed the persistence layer at first boot.
func EncodedDefaults() map[string]string {
	snap := DefaultSnapshot()
	out := make(map[string]string, len(registry))
	for i := range registry {
		spec := &registry[i]
		out[spec.Key] = spec.display(snap)
	}
	return out
}
