package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies the current bearer token. Session storage is an
// external collaborator; the gateway only needs the string.
type TokenSource func() (string, error)

// Config holds gateway settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the gateway client.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// Client talks to the course backend. It retains no state between calls:
// every response is normalized into the canonical model and handed to the
// caller.
type Client struct {
	client  *http.Client
	baseURL string
	tokens  TokenSource
	logger  *zap.Logger
}

// NewClient creates a gateway client. A nil logger is replaced with a
// no-op logger.
func NewClient(cfg Config, tokens TokenSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		logger:  logger,
	}
}

// envelope is the backend's uniform response shape.
type envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
}

// hasData reports whether the envelope carries a usable payload. The
// backend sometimes sets isSuccess=false while still returning a valid
// data array; such responses are treated as success.
func (e *envelope) hasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 &&
		!bytes.Equal(trimmed, []byte("null")) &&
		!bytes.Equal(trimmed, []byte("[]")) &&
		!bytes.Equal(trimmed, []byte("{}"))
}

// call performs one request and classifies the outcome into the error
// taxonomy. mutating controls whether a 404 is benign (fetch-detail on a
// resource not yet created) or fatal (state change against a missing
// resource).
func (c *Client) call(ctx context.Context, method, path, op string, mutating bool, body any) (*envelope, error) {
	token, err := c.tokens()
	if err != nil || token == "" {
		return nil, ErrAuthRequired
	}

	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ErrTransient{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ErrNotFound{Op: op, Benign: !mutating}
	case resp.StatusCode >= 500:
		return nil, &ErrTransient{Op: op, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s: HTTP %d", op, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &ErrTransient{Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	return &env, nil
}

// decodeData unmarshals the envelope payload into out.
func decodeData(env *envelope, op string, out any) error {
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ErrTransient{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
