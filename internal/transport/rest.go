// Package transport implements the two channels to the execution host: a
// persistent websocket streaming channel and a stateless REST channel used
// for file operations and as the fallback path.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/termlink/termlink/internal/wire"
)

// DefaultRequestTimeout bounds every REST call.
const DefaultRequestTimeout = 30 * time.Second

// Rest is the request/response channel. It is stateless: the session id is
// passed per call and carried in a header alongside the API credential.
type Rest struct {
	base   *url.URL
	apiKey string
	client *http.Client
}

// NewRest builds a REST channel against baseURL. The URL must be absolute
// http(s); anything else is an invalid-endpoint error.
func NewRest(baseURL, apiKey string) (*Rest, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, wire.NewError(wire.KindInvalidEndpoint, "rest: parse url", err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, wire.Errorf(wire.KindInvalidEndpoint, "rest: parse url", "not an absolute http(s) url: %q", baseURL)
	}

	return &Rest{
		base:   u,
		apiKey: apiKey,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}, nil
}

// CreateSession creates a new session for the given device/installation id.
func (r *Rest) CreateSession(ctx context.Context, userID string) (*wire.Session, error) {
	const op = "rest: create session"

	var out wire.CreateSessionResponse
	status, err := r.doJSON(ctx, http.MethodPost, "/create-session", nil, "", wire.CreateSessionRequest{UserID: userID}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, wire.Errorf(wire.KindSession, op, "%s", out.Error)
	}
	if status < 200 || status >= 300 {
		return nil, wire.Errorf(wire.KindSession, op, "status %d", status)
	}
	if out.SessionID == "" {
		return nil, wire.Errorf(wire.KindResponseFormat, op, "missing sessionId")
	}

	return &wire.Session{ID: out.SessionID, OwnerID: out.UserID, CreatedAt: time.Now()}, nil
}

// ValidateSession issues the cheap liveness check for a cached session id.
// Any non-2xx status means the session is no longer valid.
func (r *Rest) ValidateSession(ctx context.Context, sessionID string) error {
	req, err := r.newRequest(ctx, http.MethodGet, "/session", nil, sessionID, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return wire.NewError(wire.KindTransportFailure, "rest: validate session", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wire.Errorf(wire.KindSession, "rest: validate session", "status %d", resp.StatusCode)
	}
	return nil
}

// EndSession tears down the session server-side.
func (r *Rest) EndSession(ctx context.Context, sessionID string) error {
	req, err := r.newRequest(ctx, http.MethodDelete, "/session", nil, sessionID, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return wire.NewError(wire.KindTransportFailure, "rest: end session", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wire.Errorf(wire.KindSession, "rest: end session", "status %d", resp.StatusCode)
	}
	return nil
}

// ExecuteCommand runs a command through the request/response path. The
// response may carry a session renewal; the caller forwards it to the
// session manager.
func (r *Rest) ExecuteCommand(ctx context.Context, sessionID, command string) (*wire.CommandResponse, error) {
	var out wire.CommandResponse
	status, err := r.doJSON(ctx, http.MethodPost, "/execute-command", nil, sessionID, wire.ExecuteCommandRequest{Command: command}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error == "" && (status < 200 || status >= 300) {
		return nil, wire.Errorf(wire.KindTransportFailure, "rest: execute command", "status %d", status)
	}
	return &out, nil
}

// ListFiles lists the directory at path.
func (r *Rest) ListFiles(ctx context.Context, sessionID, path string) ([]wire.FileItem, error) {
	q := url.Values{"path": {path}}

	var out wire.FileListResponse
	status, err := r.doJSON(ctx, http.MethodGet, "/files", q, sessionID, nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, wire.Errorf(wire.KindRemote, "rest: list files", "%s", out.Error)
	}
	if status < 200 || status >= 300 {
		return nil, wire.Errorf(wire.KindTransportFailure, "rest: list files", "status %d", status)
	}
	return out.Files, nil
}

// DownloadFile fetches the raw bytes of a remote file. An error body is
// recognized even when the server answers 200.
func (r *Rest) DownloadFile(ctx context.Context, sessionID, path string) ([]byte, error) {
	const op = "rest: download file"

	q := url.Values{"path": {path}}
	req, err := r.newRequest(ctx, http.MethodGet, "/files/download", q, sessionID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, wire.NewError(wire.KindTransportFailure, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wire.NewError(wire.KindTransportFailure, op, err)
	}

	// Failed downloads come back as a JSON error body.
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var e wire.ConfirmResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, wire.Errorf(wire.KindRemote, op, "%s", e.Error)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wire.Errorf(wire.KindTransportFailure, op, "status %d", resp.StatusCode)
	}
	return body, nil
}

// UploadFile sends file bytes as a multipart form with the destination path.
func (r *Rest) UploadFile(ctx context.Context, sessionID, path, filename string, data []byte) (string, error) {
	const op = "rest: upload file"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("path", path); err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}
	if err := mw.Close(); err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}

	req, err := r.newRequest(ctx, http.MethodPost, "/files/upload", nil, sessionID, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return r.confirm(op, req)
}

// Mkdir creates a remote directory.
func (r *Rest) Mkdir(ctx context.Context, sessionID, path string) (string, error) {
	const op = "rest: mkdir"

	body, err := json.Marshal(wire.MkdirRequest{Path: path})
	if err != nil {
		return "", wire.NewError(wire.KindParse, op, err)
	}

	req, err := r.newRequest(ctx, http.MethodPost, "/files/mkdir", nil, sessionID, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	return r.confirm(op, req)
}

// DeleteFile removes a remote file or directory.
func (r *Rest) DeleteFile(ctx context.Context, sessionID, path string) (string, error) {
	q := url.Values{"path": {path}}
	req, err := r.newRequest(ctx, http.MethodDelete, "/files", q, sessionID, nil)
	if err != nil {
		return "", err
	}
	return r.confirm("rest: delete file", req)
}

// confirm executes req and interprets the {message}/{error} confirmation
// shape shared by the mutating file endpoints.
func (r *Rest) confirm(op string, req *http.Request) (string, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wire.NewError(wire.KindTransportFailure, op, err)
	}

	var out wire.ConfirmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", wire.NewError(wire.KindParse, op, err)
	}
	if out.Error != "" {
		return "", wire.Errorf(wire.KindRemote, op, "%s", out.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", wire.Errorf(wire.KindTransportFailure, op, "status %d", resp.StatusCode)
	}
	return out.Message, nil
}

// doJSON executes a JSON round trip and decodes the body into out. The HTTP
// status is returned so callers can apply their own success policy; body
// decoding is attempted even on error statuses because the server reports
// application failures in the body.
func (r *Rest) doJSON(ctx context.Context, method, path string, query url.Values, sessionID string, in, out any) (int, error) {
	op := "rest: " + method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, wire.NewError(wire.KindParse, op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := r.newRequest(ctx, method, path, query, sessionID, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, wire.NewError(wire.KindTransportFailure, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, wire.NewError(wire.KindTransportFailure, op, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, wire.NewError(wire.KindParse, op, err)
		}
	}
	return resp.StatusCode, nil
}

// newRequest builds a request with the credential and session headers set.
func (r *Rest) newRequest(ctx context.Context, method, path string, query url.Values, sessionID string, body io.Reader) (*http.Request, error) {
	u := *r.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, wire.NewError(wire.KindInvalidEndpoint, "rest: build request", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set(wire.HeaderAPIKey, r.apiKey)
	}
	if sessionID != "" {
		req.Header.Set(wire.HeaderSessionID, sessionID)
	}
	return req, nil
}
