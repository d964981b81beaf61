// Package dispatch correlates in-flight commands with their eventual result
// via client-generated command ids, and owns the transport-selection and
// grace-period fallback logic.
package dispatch

import (
	"errors"
	"strings"
	"sync"

	"github.com/termlink/termlink/internal/wire"
)

// ErrDuplicateID is returned when a command id is registered while a live
// registration for the same id still exists. Retries and fallbacks must
// generate a fresh id instead of reusing one.
var ErrDuplicateID = errors.New("dispatch: command id already registered")

// Outcome is the single terminal result delivered for a registration.
// Exactly one of the fields is meaningful: Output for completed commands,
// Session for resolved session creations, Err for failures.
type Outcome struct {
	Output  string
	Session *wire.Session
	Err     error
}

type entry struct {
	onChunk func(string)
	done    chan Outcome
	buf     strings.Builder
}

// Registry is the table of pending registrations. Channel delivery and
// grace-timer expiry can race to resolve the same id; the mutex guarantees
// exactly one wins, and removal is idempotent.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a pending entry for id. The returned channel receives the
// single terminal Outcome. onChunk, if non-nil, is invoked for every partial
// output fragment in arrival order.
func (r *Registry) Register(id string, onChunk func(string)) (<-chan Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.entries[id]; live {
		return nil, ErrDuplicateID
	}
	e := &entry{onChunk: onChunk, done: make(chan Outcome, 1)}
	r.entries[id] = e
	return e.done, nil
}

// Output appends a fragment to the entry's buffer and forwards it to the
// streaming callback. Fragments for unknown ids are stale deliveries from a
// discarded registration and are ignored.
func (r *Registry) Output(id, chunk string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		e.buf.WriteString(chunk)
	}
	r.mu.Unlock()

	// The channel read loop is the only caller, so callback order matches
	// arrival order even though the lock is released first.
	if ok && e.onChunk != nil {
		e.onChunk(chunk)
	}
}

// Complete resolves id with its accumulated output.
func (r *Registry) Complete(id string) {
	if e := r.take(id); e != nil {
		e.done <- Outcome{Output: e.buf.String()}
	}
}

// CompleteSession resolves id with a newly created session.
func (r *Registry) CompleteSession(id string, s wire.Session) {
	if e := r.take(id); e != nil {
		e.done <- Outcome{Session: &s}
	}
}

// Fail resolves id with err, discarding any buffered output.
func (r *Registry) Fail(id string, err error) {
	if e := r.take(id); e != nil {
		e.done <- Outcome{Err: err}
	}
}

// Discard removes a registration without delivering anything and reports
// whether it was still live. A false return means a resolution already won
// the race and the caller should read the outcome instead.
func (r *Registry) Discard(id string) bool {
	return r.take(id) != nil
}

// Len reports the number of live registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) take(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e != nil {
		delete(r.entries, id)
	}
	return e
}
