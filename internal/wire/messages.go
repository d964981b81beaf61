// Package wire defines the JSON message envelopes shared by both transports:
// the discriminated text frames of the streaming channel and the
// request/response payloads of the REST channel.
package wire

import "time"

// Header names required on every REST call.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSessionID = "X-Session-ID"
)

// Streaming message type discriminators.
const (
	// Outbound (client to server).
	MsgCreateSession  = "create_session"
	MsgJoinSession    = "join_session"
	MsgExecuteCommand = "execute_command"
	MsgEndSession     = "end_session"

	// Inbound (server to client).
	MsgConnected       = "connected"
	MsgSessionCreated  = "session_created"
	MsgCommandOutput   = "command_output"
	MsgCommandComplete = "command_complete"
	MsgCommandError    = "command_error"
	MsgSessionExpired  = "session_expired"
)

// Session is the client-side view of a remote session. At most one valid
// Session is held per process; the session manager owns the cached copy.
type Session struct {
	ID        string    `json:"sessionId"`
	OwnerID   string    `json:"userId"`
	CreatedAt time.Time `json:"-"`
}

// Outbound is a client-to-server streaming frame. Every outbound frame
// carries the current session id (when one exists) and the API credential.
type Outbound struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	CommandID string `json:"commandId,omitempty"`
	Command   string `json:"command,omitempty"`
}

// Inbound is a server-to-client streaming frame, discriminated by Type.
// Fields are populated per type; DecodeInbound validates the required ones.
type Inbound struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	CommandID      string `json:"commandId,omitempty"`
	Output         string `json:"output,omitempty"`
	Error          string `json:"error,omitempty"`
	SessionRenewed bool   `json:"sessionRenewed,omitempty"`
	NewSessionID   string `json:"newSessionId,omitempty"`
}

// CreateSessionRequest is the body of POST /create-session.
type CreateSessionRequest struct {
	UserID string `json:"userId"`
}

// CreateSessionResponse is the body returned by POST /create-session.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Error     string `json:"error,omitempty"`
}

// ExecuteCommandRequest is the body of POST /execute-command.
type ExecuteCommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse is the body returned by POST /execute-command. The server
// may renew the session mid-command; the renewed id rides along here.
type CommandResponse struct {
	Output         string `json:"output"`
	Error          string `json:"error,omitempty"`
	SessionRenewed bool   `json:"sessionRenewed,omitempty"`
	NewSessionID   string `json:"newSessionId,omitempty"`
}

// FileItem is a read-only projection of remote filesystem state. It is never
// cached beyond the list call that produced it.
type FileItem struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	IsDirectory bool      `json:"isDirectory"`
	SizeBytes   int64     `json:"sizeBytes"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// FileListResponse is the body returned by GET /files.
type FileListResponse struct {
	Files []FileItem `json:"files"`
	Error string     `json:"error,omitempty"`
}

// ConfirmResponse is the body returned by the mutating file endpoints.
type ConfirmResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MkdirRequest is the body of POST /files/mkdir.
type MkdirRequest struct {
	Path string `json:"path"`
}
