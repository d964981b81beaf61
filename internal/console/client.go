// Package console wires the transports, session manager, dispatcher, file
// client and history into the single client the presentation layer talks
// to. It is the only package that knows how the components connect.
package console

import (
	"context"
	"log"

	"github.com/termlink/termlink/internal/config"
	"github.com/termlink/termlink/internal/dispatch"
	"github.com/termlink/termlink/internal/files"
	"github.com/termlink/termlink/internal/history"
	"github.com/termlink/termlink/internal/session"
	"github.com/termlink/termlink/internal/transport"
	"github.com/termlink/termlink/internal/wire"
)

// Recorder is an optional collaborator that observes executed commands and
// their output, e.g. for audit upload. A nil Recorder disables recording.
type Recorder interface {
	RecordCommand(command, output string)
}

// Option customizes a Client.
type Option func(*Client)

// WithRecorder attaches an optional command recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Client is the remote-console facade.
type Client struct {
	rest     *transport.Rest
	stream   *transport.Stream
	sessions *session.Manager
	disp     *dispatch.Dispatcher
	files    *files.Client
	history  *history.Ring
	recorder Recorder
}

// New builds a fully wired client and starts the streaming channel in the
// background. The client is usable immediately; until the channel comes up
// (or if it never does) every call runs over the REST transport.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	rest, err := transport.NewRest(cfg.ServerURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	deviceID, err := config.DeviceID()
	if err != nil {
		return nil, err
	}

	registry := dispatch.NewRegistry()

	// The stream's callbacks capture the manager and dispatcher, which are
	// assigned before Start begins dialing, so the callbacks never observe
	// them unset.
	var (
		sessions *session.Manager
		disp     *dispatch.Dispatcher
	)

	stream := transport.NewStream(transport.StreamConfig{
		URL:       cfg.ResolveStreamURL(),
		APIKey:    cfg.APIKey,
		SessionID: func() string { return sessions.CurrentID() },
		OnMessage: func(msg *wire.Inbound) { disp.HandleMessage(msg) },
		OnConnect: func() {
			if err := sessions.JoinStream(); err != nil {
				log.Printf("console: session re-sync failed: %v", err)
			}
		},
		PingInterval:         cfg.PingInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})

	sessions = session.NewManager(rest, stream, registry, deviceID, cfg.GracePeriod)
	disp = dispatch.New(sessions, registry, stream, rest, cfg.GracePeriod)
	stream.Start()

	c := &Client{
		rest:     rest,
		stream:   stream,
		sessions: sessions,
		disp:     disp,
		files:    files.New(sessions, rest),
		history:  history.NewRing(cfg.HistorySize, cfg.HistoryFile),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute runs a command, streaming partial output through onChunk when the
// channel allows it, and returns the complete output.
func (c *Client) Execute(ctx context.Context, command string, onChunk func(string)) (string, error) {
	out, err := c.disp.Execute(ctx, command, onChunk)
	if err == nil && c.recorder != nil && command != "" {
		c.recorder.RecordCommand(command, out)
	}
	return out, err
}

// Interrupt sends the interrupt control character to the running command.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.disp.Interrupt(ctx)
}

// Files returns the file-operations client.
func (c *Client) Files() *files.Client { return c.files }

// History returns the shell command history.
func (c *Client) History() *history.Ring { return c.history }

// StreamConnected reports whether the streaming channel is currently up.
func (c *Client) StreamConnected() bool { return c.stream.Connected() }

// EndSession tears down the current remote session.
func (c *Client) EndSession(ctx context.Context) error {
	return c.sessions.EndSession(ctx)
}

// Close shuts the streaming channel down.
func (c *Client) Close() error {
	return c.stream.Close()
}
