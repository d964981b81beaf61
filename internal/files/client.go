// Package files is the file-management API scoped to the current session.
// Every operation is a single REST call; these are never streamed, and no
// retries happen at this layer — a failure surfaces immediately and retry
// policy stays with the caller.
package files

import (
	"context"

	"github.com/termlink/termlink/internal/wire"
)

// SessionProvider supplies a valid session for each operation.
type SessionProvider interface {
	EnsureSession(ctx context.Context) (wire.Session, error)
}

// RestAPI is the REST-channel surface the files client needs.
type RestAPI interface {
	ListFiles(ctx context.Context, sessionID, path string) ([]wire.FileItem, error)
	DownloadFile(ctx context.Context, sessionID, path string) ([]byte, error)
	UploadFile(ctx context.Context, sessionID, path, filename string, data []byte) (string, error)
	Mkdir(ctx context.Context, sessionID, path string) (string, error)
	DeleteFile(ctx context.Context, sessionID, path string) (string, error)
}

// Client performs remote file operations.
type Client struct {
	sessions SessionProvider
	rest     RestAPI
}

func New(sessions SessionProvider, rest RestAPI) *Client {
	return &Client{sessions: sessions, rest: rest}
}

// List returns the directory entries at path. The result is a snapshot;
// nothing is cached beyond this call.
func (c *Client) List(ctx context.Context, path string) ([]wire.FileItem, error) {
	sess, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}
	return c.rest.ListFiles(ctx, sess.ID, path)
}

// Download fetches the raw bytes of the remote file at path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	sess, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}
	return c.rest.DownloadFile(ctx, sess.ID, path)
}

// Upload stores data as filename under the remote directory path and
// returns the server confirmation message.
func (c *Client) Upload(ctx context.Context, data []byte, filename, path string) (string, error) {
	sess, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return "", err
	}
	return c.rest.UploadFile(ctx, sess.ID, path, filename, data)
}

// Mkdir creates a remote directory and returns the confirmation message.
func (c *Client) Mkdir(ctx context.Context, path string) (string, error) {
	sess, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return "", err
	}
	return c.rest.Mkdir(ctx, sess.ID, path)
}

// Delete removes the remote file or directory at path and returns the
// confirmation message.
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	sess, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return "", err
	}
	return c.rest.DeleteFile(ctx, sess.ID, path)
}
