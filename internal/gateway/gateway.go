// Package gateway sends JSON requests to the task API, attaching the
// current session's bearer credential and classifying failures. It performs
// no retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasksync/internal/session"
)

// maxErrorBody caps how much of an error response is read for a message.
const maxErrorBody = 4096

// CredentialSource provides the session at call time.
type CredentialSource interface {
	Current() (session.Session, bool)
}

// Gateway wraps an HTTP client for one API root.
type Gateway struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
	logger  zerolog.Logger
}

// New creates a Gateway. client may be nil to use http.DefaultClient; its
// Timeout bounds every call. creds may be nil for unauthenticated use.
func New(baseURL string, client *http.Client, creds CredentialSource, logger zerolog.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		creds:   creds,
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

// Send issues method path with body JSON-encoded (if non-nil) and decodes a
// successful JSON response into out (if non-nil). Failures are *Error.
func (g *Gateway) Send(ctx context.Context, method, path string, body, out any) error {
	req, err := g.newRequest(ctx, method, path, body)
	if err != nil {
		return &Error{Kind: KindValidation, Method: method, Path: path, Err: err}
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Kind: KindUnavailable, Method: method, Path: path, Err: unwrapTransport(err)}
	}
	defer resp.Body.Close()

	g.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	if kind := ClassifyStatus(resp.StatusCode); kind != 0 {
		return &Error{
			Kind:    kind,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{Kind: KindServerFault, Method: method, Path: path, Status: resp.StatusCode, Message: "empty response"}
		}
		return &Error{Kind: KindServerFault, Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Read at call time so a logout is reflected by the very next request.
	if g.creds != nil {
		if cur, ok := g.creds.Current(); ok {
			cur.OAuthToken().SetAuthHeader(req)
		}
	}
	return req, nil
}

// errorMessage extracts a human message from a JSON or plain-text error body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	msg := strings.TrimSpace(string(data))
	if strings.HasPrefix(msg, "<") {
		return ""
	}
	return msg
}

func unwrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
