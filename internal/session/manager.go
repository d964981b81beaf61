// Package session owns the cached session id: its creation, validation,
// transparent renewal, and teardown. All components reach the session
// through the Manager; nothing else mutates it.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/termlink/termlink/internal/dispatch"
	"github.com/termlink/termlink/internal/wire"
)

// DefaultCreateGrace is how long a stream-preferred session creation waits
// for the matching session_created push before falling back to the REST
// channel.
const DefaultCreateGrace = 3 * time.Second

// RestAPI is the REST-channel surface the manager needs.
type RestAPI interface {
	CreateSession(ctx context.Context, userID string) (*wire.Session, error)
	ValidateSession(ctx context.Context, sessionID string) error
	EndSession(ctx context.Context, sessionID string) error
}

// StreamAPI is the streaming-channel surface the manager needs. It may be
// backed by a channel that is currently down; Connected gates its use.
type StreamAPI interface {
	Connected() bool
	SendCreateSession(userID, correlationID string) error
	SendJoinSession() error
	SendEndSession() error
}

// Manager holds the single client-side session. A new session always
// supersedes the old one atomically; no two valid sessions coexist.
type Manager struct {
	rest     RestAPI
	stream   StreamAPI
	registry *dispatch.Registry
	deviceID string
	grace    time.Duration

	// ensureMu serializes EnsureSession so two concurrent commands cannot
	// independently create two sessions. cacheMu guards only the cached
	// value: renewals pushed by the read loop must never wait behind an
	// in-flight ensure.
	ensureMu sync.Mutex
	cacheMu  sync.Mutex
	cur      *wire.Session
}

// NewManager builds a Manager. stream may be nil when the streaming channel
// is not in play; grace <= 0 selects DefaultCreateGrace.
func NewManager(rest RestAPI, stream StreamAPI, registry *dispatch.Registry, deviceID string, grace time.Duration) *Manager {
	if grace <= 0 {
		grace = DefaultCreateGrace
	}
	return &Manager{
		rest:     rest,
		stream:   stream,
		registry: registry,
		deviceID: deviceID,
		grace:    grace,
	}
}

// EnsureSession returns a valid session, creating or recreating one as
// needed. A cached session is revalidated with the cheap REST check first;
// any validation failure drops the cache and falls through to creation.
func (m *Manager) EnsureSession(ctx context.Context) (wire.Session, error) {
	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()

	if cur, ok := m.Current(); ok {
		err := m.rest.ValidateSession(ctx, cur.ID)
		if err == nil {
			return cur, nil
		}
		log.Printf("session: cached session %s invalid: %v", cur.ID, err)
		m.setCurrent(nil)
	}

	sess, err := m.create(ctx)
	if err != nil {
		return wire.Session{}, err
	}
	m.setCurrent(sess)
	log.Printf("session: created %s", sess.ID)
	return *sess, nil
}

// create prefers the streaming channel when it is connected, with a grace
// fallback to REST creation. Whichever resolves first wins; the loser's
// registration is discarded.
func (m *Manager) create(ctx context.Context) (*wire.Session, error) {
	if m.stream != nil && m.stream.Connected() {
		if sess, ok := m.createViaStream(ctx); ok {
			return sess, nil
		}
	}
	return m.rest.CreateSession(ctx, m.deviceID)
}

// createViaStream sends create_session and waits for the correlated
// session_created push. ok is false when the attempt was abandoned and the
// caller should create over REST instead.
func (m *Manager) createViaStream(ctx context.Context) (*wire.Session, bool) {
	corr := uuid.NewString()

	done, err := m.registry.Register(corr, nil)
	if err != nil {
		return nil, false
	}
	if err := m.stream.SendCreateSession(m.deviceID, corr); err != nil {
		m.registry.Discard(corr)
		return nil, false
	}

	timer := time.NewTimer(m.grace)
	defer timer.Stop()

	select {
	case outcome := <-done:
		if outcome.Err != nil || outcome.Session == nil {
			return nil, false
		}
		return outcome.Session, true

	case <-timer.C:
		if !m.registry.Discard(corr) {
			// The push beat the timer; its outcome is already queued.
			outcome := <-done
			if outcome.Err == nil && outcome.Session != nil {
				return outcome.Session, true
			}
		}
		log.Printf("session: no session_created push within %s, creating over rest", m.grace)
		return nil, false

	case <-ctx.Done():
		m.registry.Discard(corr)
		return nil, false
	}
}

// AdoptRenewal swaps the cached session id for a server-renewed one and
// re-binds the streaming channel to it. Renewal is invisible to in-flight
// commands; nothing is failed.
func (m *Manager) AdoptRenewal(newSessionID string) {
	if newSessionID == "" {
		return
	}

	m.cacheMu.Lock()
	if m.cur != nil && m.cur.ID == newSessionID {
		m.cacheMu.Unlock()
		return
	}
	owner := m.deviceID
	if m.cur != nil {
		owner = m.cur.OwnerID
	}
	m.cur = &wire.Session{ID: newSessionID, OwnerID: owner, CreatedAt: time.Now()}
	m.cacheMu.Unlock()

	log.Printf("session: renewed to %s", newSessionID)
	if m.stream != nil && m.stream.Connected() {
		if err := m.stream.SendJoinSession(); err != nil {
			log.Printf("session: join after renewal failed: %v", err)
		}
	}
}

// JoinStream re-binds the cached session on the streaming channel, used
// after a (re)connect. With no cached session it is a no-op.
func (m *Manager) JoinStream() error {
	if m.stream == nil || !m.stream.Connected() {
		return nil
	}
	if _, ok := m.Current(); !ok {
		return nil
	}
	return m.stream.SendJoinSession()
}

// Invalidate drops the cached session; the next call recreates it.
func (m *Manager) Invalidate() {
	m.setCurrent(nil)
	log.Printf("session: invalidated")
}

// EndSession tears down the current session on both transports and clears
// the cache. Ending with no session is a no-op.
func (m *Manager) EndSession(ctx context.Context) error {
	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()

	cur, ok := m.Current()
	if !ok {
		return nil
	}
	m.setCurrent(nil)

	if m.stream != nil && m.stream.Connected() {
		if err := m.stream.SendEndSession(); err != nil {
			log.Printf("session: stream end_session failed: %v", err)
		}
	}
	return m.rest.EndSession(ctx, cur.ID)
}

// Current returns the cached session, if any.
func (m *Manager) Current() (wire.Session, bool) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	if m.cur == nil {
		return wire.Session{}, false
	}
	return *m.cur, true
}

// CurrentID returns the cached session id or "".
func (m *Manager) CurrentID() string {
	s, ok := m.Current()
	if !ok {
		return ""
	}
	return s.ID
}

func (m *Manager) setCurrent(s *wire.Session) {
	m.cacheMu.Lock()
	m.cur = s
	m.cacheMu.Unlock()
}
