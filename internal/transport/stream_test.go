package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termlink/termlink/internal/wire"
)

// echoHub is a test websocket server that records client frames and lets the
// test push frames back.
type echoHub struct {
	t        *testing.T
	upgrader websocket.Upgrader

	conns    chan *websocket.Conn
	received chan wire.Outbound
}

func newEchoHub(t *testing.T) *echoHub {
	return &echoHub{
		t:        t,
		conns:    make(chan *websocket.Conn, 64),
		received: make(chan wire.Outbound, 16),
	}
}

func (h *echoHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.t.Errorf("upgrade: %v", err)
		return
	}
	h.conns <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wire.Outbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.t.Errorf("server decode: %v", err)
			continue
		}
		h.received <- msg
	}
}

func (h *echoHub) push(conn *websocket.Conn, msg wire.Inbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.t.Fatalf("server encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.t.Fatalf("server write: %v", err)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitConnected(t *testing.T, s *Stream) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !s.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("stream never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamConnectAndSend(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	sessionID := "s-1"
	s := NewStream(StreamConfig{
		URL:       wsURL(srv),
		APIKey:    "secret",
		SessionID: func() string { return sessionID },
	})
	s.Start()
	defer s.Close()

	waitConnected(t, s)
	if got := s.State(); got != StateConnected {
		t.Fatalf("state = %v, want connected", got)
	}

	if err := s.SendExecuteCommand("ls -la", "cmd-1"); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-hub.received:
		if msg.Type != wire.MsgExecuteCommand {
			t.Errorf("type = %q", msg.Type)
		}
		if msg.Command != "ls -la" || msg.CommandID != "cmd-1" {
			t.Errorf("payload = %+v", msg)
		}
		// Credential and session id are stamped on every frame.
		if msg.Token != "secret" || msg.SessionID != "s-1" {
			t.Errorf("token/session = %q/%q", msg.Token, msg.SessionID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestStreamDeliversInboundInOrder(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	got := make(chan *wire.Inbound, 8)
	s := NewStream(StreamConfig{
		URL:       wsURL(srv),
		OnMessage: func(m *wire.Inbound) { got <- m },
	})
	s.Start()
	defer s.Close()

	waitConnected(t, s)
	conn := <-hub.conns

	hub.push(conn, wire.Inbound{Type: wire.MsgCommandOutput, CommandID: "c", Output: "one"})
	hub.push(conn, wire.Inbound{Type: wire.MsgCommandOutput, CommandID: "c", Output: "two"})
	hub.push(conn, wire.Inbound{Type: wire.MsgCommandComplete, CommandID: "c"})

	want := []string{"one", "two", ""}
	for i, w := range want {
		select {
		case m := <-got:
			if m.Output != w {
				t.Errorf("frame %d output = %q, want %q", i, m.Output, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d never delivered", i)
		}
	}
}

func TestStreamDropsUndecodableFrames(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	got := make(chan *wire.Inbound, 8)
	s := NewStream(StreamConfig{
		URL:       wsURL(srv),
		OnMessage: func(m *wire.Inbound) { got <- m },
	})
	s.Start()
	defer s.Close()

	waitConnected(t, s)
	conn := <-hub.conns

	// Garbage must not kill the channel; the next valid frame still arrives.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("server write: %v", err)
	}
	hub.push(conn, wire.Inbound{Type: wire.MsgConnected})

	select {
	case m := <-got:
		if m.Type != wire.MsgConnected {
			t.Errorf("type = %q", m.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid frame after garbage never delivered")
	}
	if !s.Connected() {
		t.Error("channel went down on an undecodable frame")
	}
}

func TestStreamSendWhileDisconnected(t *testing.T) {
	s := NewStream(StreamConfig{
		URL:                  "ws://127.0.0.1:1", // nothing listens here
		MaxReconnectAttempts: 1,
	})
	s.Start()
	defer s.Close()

	err := s.SendExecuteCommand("echo hi", "cmd-1")
	if err == nil {
		t.Fatal("send succeeded with no connection")
	}
	if !wire.IsKind(err, wire.KindChannel) {
		t.Errorf("error kind = %v", err)
	}
}

func TestStreamOnConnectRunsPerConnection(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	connected := make(chan struct{}, 4)
	s := NewStream(StreamConfig{
		URL:       wsURL(srv),
		OnConnect: func() { connected <- struct{}{} },
	})
	s.Start()
	defer s.Close()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("OnConnect never fired")
	}
}

func TestStreamNoTrafficBeforeStart(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	s := NewStream(StreamConfig{URL: wsURL(srv)})
	defer s.Close()

	time.Sleep(50 * time.Millisecond)
	if s.Connected() {
		t.Fatal("stream connected before Start")
	}
	select {
	case <-hub.conns:
		t.Fatal("server saw a connection before Start")
	default:
	}
}

func TestStreamCloseDuringStartupStaysDown(t *testing.T) {
	hub := newEchoHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	for i := 0; i < 30; i++ {
		s := NewStream(StreamConfig{URL: wsURL(srv)})
		s.Start()
		s.Close()

		// Whatever the close/dial interleaving, a closed stream must settle
		// Disconnected and never come back up.
		deadline := time.Now().Add(time.Second)
		for s.Connected() {
			if time.Now().After(deadline) {
				t.Fatalf("iteration %d: stream stayed up after Close", i)
			}
			time.Sleep(time.Millisecond)
		}
		time.Sleep(5 * time.Millisecond)
		if s.Connected() {
			t.Fatalf("iteration %d: stream came back up after Close", i)
		}
	}
}
