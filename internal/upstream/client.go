// Package upstream is the HTTP client for the OpenAI-flavored backend. It
// forwards the bearer token presented by the caller; no credentials are
// stored.
package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"strings"
	"time"
)

const sseDataPrefix = "data: "

// Client posts JSON to the upstream API.
type Client struct {
	base       string
	httpClient *http.Client
	userAgent  string
}

// New builds a Client for the given base URL. Only the connection attempt
// is bounded; responses may stream for as long as the upstream keeps
// sending.
func New(baseURL string, connectTimeout time.Duration, userAgent string) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport},
		userAgent:  userAgent,
	}
}

// Endpoint joins the base URL with an API path, tolerating bases configured
// with or without a trailing /v1.
func (c *Client) Endpoint(path string) string {
	base := c.base
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + path
}

// Response is a fully-read upstream reply.
type Response struct {
	Status int
	Body   []byte
}

// Post sends a JSON payload and reads the whole reply.
func (c *Client) Post(ctx context.Context, path, token string, payload any) (*Response, error) {
	resp, err := c.send(ctx, path, token, payload, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// StreamResponse is an open SSE reply. On a non-2xx status the error body
// is pre-read into ErrBody and the connection is already closed.
type StreamResponse struct {
	Status  int
	ErrBody []byte
	body    io.ReadCloser
}

// PostStream sends a JSON payload and keeps the reply open for SSE reading.
func (c *Client) PostStream(ctx context.Context, path, token string, payload any) (*StreamResponse, error) {
	resp, err := c.send(ctx, path, token, payload, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading upstream error response: %w", readErr)
		}
		return &StreamResponse{Status: resp.StatusCode, ErrBody: body}, nil
	}
	return &StreamResponse{Status: resp.StatusCode, body: resp.Body}, nil
}

// Lines iterates the data payloads of the SSE stream: the "data: " prefix
// is stripped and blank keep-alive lines are skipped. Iteration stops at
// EOF or after yielding a read error.
func (s *StreamResponse) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			if !strings.HasPrefix(line, sseDataPrefix) {
				continue
			}
			if !yield(strings.TrimPrefix(line, sseDataPrefix), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("reading upstream stream: %w", err))
		}
	}
}

// Close releases the underlying connection.
func (s *StreamResponse) Close() error {
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}

func (c *Client) send(ctx context.Context, path, token string, payload any, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling upstream: %w", err)
	}
	return resp, nil
}
