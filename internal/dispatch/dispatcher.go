package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/termlink/termlink/internal/wire"
)

// DefaultGracePeriod is how long a streamed command may stay silent before
// the dispatcher abandons its registration and retries on the REST channel.
const DefaultGracePeriod = 3 * time.Second

// interruptSequence is the literal control character sent to interrupt the
// running remote command. The remote protocol has no cancel message; the
// interrupt travels the normal dispatch path like any other command.
const interruptSequence = "\x03"

// RemoteError is a failure reported by the execution host for a specific
// command, as opposed to a client-side transport or session failure.
type RemoteError struct {
	CommandID string
	Message   string
}

func (e *RemoteError) Error() string {
	return "remote command failed: " + e.Message
}

// SessionProvider is the session manager surface the dispatcher needs.
type SessionProvider interface {
	EnsureSession(ctx context.Context) (wire.Session, error)
	CurrentID() string
	AdoptRenewal(newSessionID string)
	Invalidate()
}

// StreamTransport is the streaming-channel surface the dispatcher needs.
type StreamTransport interface {
	Connected() bool
	SendExecuteCommand(command, commandID string) error
}

// RestTransport is the request/response surface the dispatcher needs.
type RestTransport interface {
	ExecuteCommand(ctx context.Context, sessionID, command string) (*wire.CommandResponse, error)
}

// Dispatcher runs commands against the remote host, correlating streamed
// replies by command id and falling back to the REST channel when the
// stream is down or silent past the grace period.
type Dispatcher struct {
	sessions SessionProvider
	registry *Registry
	stream   StreamTransport
	rest     RestTransport
	grace    time.Duration
}

// New builds a Dispatcher. grace <= 0 selects DefaultGracePeriod.
func New(sessions SessionProvider, registry *Registry, stream StreamTransport, rest RestTransport, grace time.Duration) *Dispatcher {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Dispatcher{
		sessions: sessions,
		registry: registry,
		stream:   stream,
		rest:     rest,
		grace:    grace,
	}
}

// Registry exposes the pending-command table for wiring into the streaming
// channel's message handler.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Execute runs a command and returns its complete output. If onChunk is
// non-nil it receives partial output fragments in order as they arrive.
// Exactly one terminal result is delivered per call, even when the stream
// attempt is abandoned for the REST fallback. An empty command resolves
// immediately as a successful no-op.
func (d *Dispatcher) Execute(ctx context.Context, command string, onChunk func(string)) (string, error) {
	if command == "" {
		return "", nil
	}

	sess, err := d.sessions.EnsureSession(ctx)
	if err != nil {
		return "", err
	}

	if ChooseTransport(d.stream != nil && d.stream.Connected(), onChunk != nil) == TransportStream {
		out, outErr, fellBack := d.executeStream(ctx, command, onChunk)
		if !fellBack {
			return out, outErr
		}
		// The stale stream registration was already discarded; the retry
		// below is a new logical attempt with its own delivery semantics.
		// A renewal or expiry pushed during the streamed attempt may have
		// superseded the session, so the fallback re-reads the current id.
		if id := d.sessions.CurrentID(); id != "" {
			sess.ID = id
		} else if sess, err = d.sessions.EnsureSession(ctx); err != nil {
			return "", err
		}
	}

	return d.executeRest(ctx, sess.ID, command)
}

// Interrupt sends the interrupt control character through the normal
// dispatch path. Whether (and when) the host honors it is up to the remote
// protocol.
func (d *Dispatcher) Interrupt(ctx context.Context) error {
	_, err := d.Execute(ctx, interruptSequence, nil)
	return err
}

// executeStream runs one attempt over the streaming channel. fellBack
// reports that no terminal result was delivered and the caller should retry
// on the REST channel.
//
// Note: falling back does not confirm the original attempt never reached
// the host, so at-most-once delivery to the remote shell is not guaranteed.
// That caveat is inherent to the protocol, which has no way to query an
// in-flight command.
func (d *Dispatcher) executeStream(ctx context.Context, command string, onChunk func(string)) (out string, err error, fellBack bool) {
	id := uuid.NewString()

	// activity is pulsed on every partial fragment so a chatty long-running
	// command keeps resetting its grace timer.
	activity := make(chan struct{}, 1)
	wrapped := func(chunk string) {
		select {
		case activity <- struct{}{}:
		default:
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	done, regErr := d.registry.Register(id, wrapped)
	if regErr != nil {
		return "", nil, true
	}

	if sendErr := d.stream.SendExecuteCommand(command, id); sendErr != nil {
		d.registry.Discard(id)
		log.Printf("dispatch: stream send failed, falling back: %v", sendErr)
		return "", nil, true
	}

	timer := time.NewTimer(d.grace)
	defer timer.Stop()

	for {
		select {
		case outcome := <-done:
			return outcome.Output, outcome.Err, false

		case <-activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.grace)

		case <-timer.C:
			if !d.registry.Discard(id) {
				// A resolution won the race against the timer; take it.
				outcome := <-done
				return outcome.Output, outcome.Err, false
			}
			log.Printf("dispatch: no stream answer for %s within %s, falling back", id, d.grace)
			return "", nil, true

		case <-ctx.Done():
			if !d.registry.Discard(id) {
				outcome := <-done
				return outcome.Output, outcome.Err, false
			}
			return "", wire.NewError(wire.KindChannel, "dispatch: execute", ctx.Err()), false
		}
	}
}

// executeRest runs the command through the request/response channel and
// forwards any session renewal to the session manager.
func (d *Dispatcher) executeRest(ctx context.Context, sessionID, command string) (string, error) {
	resp, err := d.rest.ExecuteCommand(ctx, sessionID, command)
	if err != nil {
		return "", err
	}
	if resp.SessionRenewed && resp.NewSessionID != "" {
		d.sessions.AdoptRenewal(resp.NewSessionID)
	}
	if resp.Error != "" {
		return "", &RemoteError{Message: resp.Error}
	}
	return resp.Output, nil
}

// HandleMessage routes inbound streaming frames to the registry and the
// session manager. It is invoked by the channel's read loop, so per-command
// deliveries stay in arrival order.
func (d *Dispatcher) HandleMessage(msg *wire.Inbound) {
	switch msg.Type {
	case wire.MsgConnected:
		// Greeting; session re-sync happens on the connect callback.

	case wire.MsgSessionCreated:
		d.registry.CompleteSession(msg.CommandID, wire.Session{
			ID:        msg.SessionID,
			OwnerID:   msg.UserID,
			CreatedAt: time.Now(),
		})

	case wire.MsgCommandOutput:
		if msg.SessionRenewed && msg.NewSessionID != "" {
			d.sessions.AdoptRenewal(msg.NewSessionID)
		}
		d.registry.Output(msg.CommandID, msg.Output)

	case wire.MsgCommandComplete:
		d.registry.Complete(msg.CommandID)

	case wire.MsgCommandError:
		d.registry.Fail(msg.CommandID, &RemoteError{CommandID: msg.CommandID, Message: msg.Error})

	case wire.MsgSessionExpired:
		d.sessions.Invalidate()
	}
}
