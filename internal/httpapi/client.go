package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"modelctl/pkg/types"
)

// APIError is a non-2xx answer from the control API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("controller: %s (%d)", e.Message, e.Status) }

// StatusCode implements HTTPError.
func (e *APIError) StatusCode() int { return e.Status }

// IsNotFound reports whether err is a 404 from the control API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// Client talks to a running controller.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr (host:port or a full URL). Requests
// carry no client-side timeout; launches can take minutes while the instance boots.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{}}
}

// Ping reports whether a controller answers on the address.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Models lists the controller's configured models.
func (c *Client) Models(ctx context.Context) ([]types.ModelDescriptor, error) {
	var out types.ModelsResponse
	err := c.do(ctx, http.MethodGet, "/models", nil, &out)
	return out.Models, err
}

// Status fetches the controller's status report.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// StartSession asks the controller to launch a session.
func (c *Client) StartSession(ctx context.Context, req types.StartSessionRequest) (string, error) {
	var out types.StartSessionResponse
	err := c.do(ctx, http.MethodPost, "/sessions", req, &out)
	return out.SessionID, err
}

// StopSession asks the controller to stop one session.
func (c *Client) StopSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

// StopAll asks the controller to stop everything and shut down.
func (c *Client) StopAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/sessions/stop-all", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controller %s: %w", c.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var er types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			er.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: er.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
