package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch
)

const maxErrorBody = 64 << 10

// ClientOption configures Client.
type ClientOption func(*Client)

// Request is one call against the API, relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
}

// StatusError is returned for non-2xx responses. Details carries the
// messages of the AppError or ValidationError list when the server sent one.
type StatusError struct {
	Status  int
	Message string
	Details []string
}

func (e *StatusError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Client talks JSON to a server built on this package.
type Client struct {
	baseURL string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{},
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Do sends req and decodes the JSON body into dest. dest may be nil.
func (c *Client) Do(ctx context.Context, req *Request, dest interface{}) error {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// DoData is Do for endpoints that wrap their payload in APIResponse.
func (c *Client) DoData(ctx context.Context, req *Request, dest interface{}) error {
	env := struct {
		Data interface{} `json:"data"`
	}{Data: dest}
	return c.Do(ctx, req, &env)
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func decodeStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		if text := strings.TrimSpace(string(raw)); text != "" {
			se.Details = []string{text}
		}
		return se
	}
	if env.Message != "" {
		se.Message = env.Message
	}

	var items []ValidationError
	if json.Unmarshal(env.Data, &items) == nil {
		for _, it := range items {
			if it.Message == "" {
				continue
			}
			if it.Field != "" {
				se.Details = append(se.Details, it.Field+": "+it.Message)
			} else {
				se.Details = append(se.Details, it.Message)
			}
		}
		return se
	}
	var text string
	if json.Unmarshal(env.Data, &text) == nil && text != "" {
		se.Details = []string{text}
	}
	return se
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHeader sends key on every request. Empty values are skipped.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

// WithHTTPClient replaces the underlying client, e.g. for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}
