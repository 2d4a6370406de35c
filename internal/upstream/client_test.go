package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEndpointJoining(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"https://api.openai.com/v1", "/chat/completions", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com", "/chat/completions", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "/responses", "https://api.openai.com/v1/responses"},
		{"http://localhost:8080", "/responses", "http://localhost:8080/v1/responses"},
	}

	for _, tt := range tests {
		c := New(tt.base, time.Second, "")
		if got := c.Endpoint(tt.path); got != tt.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestPostForwardsAuthAndBody(t *testing.T) {
	var gotAuth, gotUA, gotContentType string
	var gotBody []byte
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(server.URL, time.Second, "model-router-proxy/test")
	resp, err := c.Post(context.Background(), "/chat/completions", "sk-test", map[string]string{"model": "m"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	if resp.Status != http.StatusOK {
		t.Errorf("status = %d", resp.Status)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("body = %s", resp.Body)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotUA != "model-router-proxy/test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if string(gotBody) != `{"model":"m"}` {
		t.Errorf("request body = %s", gotBody)
	}
}

func TestPostStreamLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"a\":1}\n\n")
		io.WriteString(w, ": keep-alive comment\n\n")
		io.WriteString(w, "event: something\n")
		io.WriteString(w, "data: {\"b\":2}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := New(server.URL, time.Second, "")
	stream, err := c.PostStream(context.Background(), "/chat/completions", "sk", map[string]string{})
	if err != nil {
		t.Fatalf("PostStream failed: %v", err)
	}
	defer stream.Close()

	if stream.ErrBody != nil {
		t.Fatalf("unexpected error body: %s", stream.ErrBody)
	}

	var got []string
	for line, err := range stream.Lines() {
		if err != nil {
			t.Fatalf("line error: %v", err)
		}
		got = append(got, line)
	}

	want := []string{`{"a":1}`, `{"b":2}`, "[DONE]"}
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPostStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"nope"}}`))
	}))
	defer server.Close()

	c := New(server.URL, time.Second, "")
	stream, err := c.PostStream(context.Background(), "/responses", "sk", map[string]string{})
	if err != nil {
		t.Fatalf("PostStream failed: %v", err)
	}
	defer stream.Close()

	if stream.Status != http.StatusBadRequest {
		t.Errorf("status = %d", stream.Status)
	}
	if string(stream.ErrBody) != `{"error":{"message":"nope"}}` {
		t.Errorf("error body = %s", stream.ErrBody)
	}
}
