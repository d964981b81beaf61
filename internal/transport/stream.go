package transport

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termlink/termlink/internal/wire"
)

// Timing constants for the streaming channel.
const (
	// DefaultPingInterval is the liveness probe period while connected.
	DefaultPingInterval = 30 * time.Second

	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 1 << 20
)

// State is the streaming channel connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StreamConfig configures a Stream.
type StreamConfig struct {
	// URL is the websocket endpoint.
	URL string

	// APIKey is carried on every outbound frame.
	APIKey string

	// SessionID supplies the current cached session id for outbound frames.
	// It may return "" before a session exists.
	SessionID func() string

	// OnMessage receives every decoded inbound frame, in arrival order.
	OnMessage func(*wire.Inbound)

	// OnConnect is called after each successful Connected transition.
	OnConnect func()

	// PingInterval overrides the liveness probe period (0 = default).
	PingInterval time.Duration

	// MaxReconnectAttempts overrides the reconnect cap (0 = default).
	MaxReconnectAttempts int

	// Dialer overrides the websocket dialer, for tests.
	Dialer *websocket.Dialer
}

// Stream is the persistent full-duplex channel. It cycles Disconnected ->
// Connecting -> Connected -> Disconnected; every failure hands control to
// the Reconnector, and once that gives up the channel stays down for the
// process lifetime.
type Stream struct {
	cfg       StreamConfig
	reconnect *Reconnector

	state atomic.Int32

	connMu sync.RWMutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	timerMu sync.Mutex
	timer   *time.Timer

	closed atomic.Bool
}

// NewStream creates the channel without opening it; Start begins dialing.
// The split lets the caller finish wiring everything the callbacks reach
// before the first frame can arrive.
func NewStream(cfg StreamConfig) *Stream {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}

	return &Stream{
		cfg:       cfg,
		reconnect: NewReconnector(cfg.MaxReconnectAttempts),
	}
}

// Start opens the channel in the background. Initial failure is not fatal:
// the reconnect schedule takes over and callers degrade to the REST
// transport meanwhile.
func (s *Stream) Start() {
	go s.dial()
}

// State returns the current connection state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Connected reports whether the channel is usable right now.
func (s *Stream) Connected() bool { return s.State() == StateConnected }

// Disabled reports whether reconnection has been permanently abandoned.
func (s *Stream) Disabled() bool { return s.reconnect.Disabled() }

// Close tears the channel down and stops all reconnection.
func (s *Stream) Close() error {
	s.closed.Store(true)

	s.timerMu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerMu.Unlock()

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.state.Store(int32(StateDisconnected))
	s.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// SendCreateSession asks the server to create a session, correlated by a
// client-generated id answered with a session_created push.
func (s *Stream) SendCreateSession(userID, correlationID string) error {
	return s.send(wire.Outbound{Type: wire.MsgCreateSession, UserID: userID, CommandID: correlationID})
}

// SendJoinSession re-binds the current cached session server-side.
func (s *Stream) SendJoinSession() error {
	return s.send(wire.Outbound{Type: wire.MsgJoinSession})
}

// SendExecuteCommand submits a command for streamed execution.
func (s *Stream) SendExecuteCommand(command, commandID string) error {
	return s.send(wire.Outbound{Type: wire.MsgExecuteCommand, Command: command, CommandID: commandID})
}

// SendEndSession announces session teardown on the channel.
func (s *Stream) SendEndSession() error {
	return s.send(wire.Outbound{Type: wire.MsgEndSession})
}

// send stamps the frame with the credential and current session id, then
// writes it. gorilla/websocket does not allow concurrent writers, so all
// writes are serialized. A write failure downs the channel.
func (s *Stream) send(msg wire.Outbound) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil || !s.Connected() {
		return wire.Errorf(wire.KindChannel, "stream: send "+msg.Type, "not connected")
	}

	msg.Token = s.cfg.APIKey
	if msg.SessionID == "" && s.cfg.SessionID != nil {
		msg.SessionID = s.cfg.SessionID()
	}

	data, err := wire.EncodeOutbound(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()

	if err != nil {
		s.down(conn, err)
		return wire.NewError(wire.KindChannel, "stream: send "+msg.Type, err)
	}
	return nil
}

// dial performs one connection attempt.
func (s *Stream) dial() {
	if s.closed.Load() || s.reconnect.Disabled() {
		return
	}
	s.state.Store(int32(StateConnecting))

	conn, _, err := s.cfg.Dialer.Dial(s.cfg.URL, nil)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		log.Printf("stream: connect failed: %v", err)
		s.scheduleReconnect()
		return
	}
	conn.SetReadLimit(maxFrameSize)

	// Close may have run while the dial was in flight. Installing the
	// connection and the Connected state under connMu keeps a closed
	// stream from coming back up.
	s.connMu.Lock()
	if s.closed.Load() {
		s.connMu.Unlock()
		conn.Close()
		s.state.Store(int32(StateDisconnected))
		return
	}
	s.conn = conn
	s.state.Store(int32(StateConnected))
	s.connMu.Unlock()

	s.reconnect.Reset()
	log.Printf("stream: connected to %s", s.cfg.URL)

	if s.cfg.OnConnect != nil {
		s.cfg.OnConnect()
	}

	go s.readLoop(conn)
	go s.pingLoop(conn)
}

// readLoop delivers inbound frames in arrival order until the connection
// fails. Frames that do not decode are logged and dropped; the channel
// itself stays up.
func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.down(conn, err)
			return
		}

		msg, err := wire.DecodeInbound(data)
		if err != nil {
			log.Printf("stream: dropping frame: %v", err)
			continue
		}
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(msg)
		}
	}
}

// pingLoop probes liveness while connected. A probe failure is treated the
// same as a receive failure.
func (s *Stream) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if s.current() != conn {
			return
		}
		s.writeMu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		if err != nil {
			s.down(conn, err)
			return
		}
	}
}

func (s *Stream) current() *websocket.Conn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

// down transitions to Disconnected exactly once per connection and hands
// control to the reconnect schedule.
func (s *Stream) down(conn *websocket.Conn, err error) {
	s.connMu.Lock()
	if s.conn != conn {
		s.connMu.Unlock()
		return
	}
	s.conn = nil
	s.connMu.Unlock()

	conn.Close()
	s.state.Store(int32(StateDisconnected))

	if s.closed.Load() {
		return
	}
	log.Printf("stream: connection lost: %v", err)
	s.scheduleReconnect()
}

func (s *Stream) scheduleReconnect() {
	delay, ok := s.reconnect.Next()
	if !ok {
		log.Printf("stream: reconnect attempts exhausted, using request transport only")
		return
	}
	log.Printf("stream: reconnecting in %s (attempt %d)", delay, s.reconnect.Attempt())

	s.timerMu.Lock()
	s.timer = time.AfterFunc(delay, s.dial)
	s.timerMu.Unlock()
}
