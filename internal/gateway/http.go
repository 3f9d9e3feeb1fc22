package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource yields the bearer token for the current session. An empty
// token means anonymous; the server decides which walkers require auth.
// The session is threaded explicitly through here rather than read from
// ambient state.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed TokenSource, mostly for tests.
type StaticToken string

func (s StaticToken) Token() (string, error) { return string(s), nil }

// Client calls walker endpoints over HTTP: POST {base}/walker/{op}[/{node}].
type Client struct {
	base  *url.URL
	http  *http.Client
	creds TokenSource
}

func NewClient(baseURL string, creds TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("http://" + strings.TrimRight(baseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse server url: %w", err)
		}
	}
	return &Client{base: u, http: http.DefaultClient, creds: creds}, nil
}

// WithHTTPClient swaps the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	u := c.base.JoinPath("walker", req.Op)
	if req.NodeID != "" {
		u = u.JoinPath(req.NodeID)
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode payload: %w", req.Op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", req.Op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		token, err := c.creds.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: read token: %w", req.Op, err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", req.Op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{Op: req.Op, Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", req.Op, err)
	}
	return &out, nil
}

// errorMessage pulls a {"message": ...} body apart, falling back to the
// raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
