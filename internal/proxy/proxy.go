package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelrouter/proxy/internal/dispatch"
	"github.com/modelrouter/proxy/internal/wire"
)

// Version is reported by /health and in the upstream User-Agent.
const Version = "1.1.0"

// proxyName identifies this proxy in the /health payload.
const proxyName = "model-router"

// Server is the local HTTP front end speaking the Anthropic Messages API.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New wires the HTTP routes around the dispatcher.
func New(dispatcher *dispatch.Dispatcher) *Server {
	logger := slog.Default()

	mux := http.NewServeMux()

	mux.Handle("POST /v1/messages", applyMiddlewares(
		&MessagesHandler{dispatcher: dispatcher},
		Logging(logger),
		Recovery,
	))

	mux.Handle("GET /health", applyMiddlewares(
		http.HandlerFunc(handleHealth),
		Recovery,
	))

	// Anything else gets the Anthropic error envelope, not Go's plain-text 404.
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, http.StatusNotFound, wire.ErrNotFound, "not found")
	}))

	return &Server{mux: mux}
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]any{
		"status":  "ok",
		"proxy":   proxyName,
		"version": Version,
		"capabilities": map[string]bool{
			"supports_responses":      true,
			"retry_on_not_chat_model": true,
		},
	}, http.StatusOK)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second, // Inbound: Read entire client request (DoS protection against slow clients)
		WriteTimeout: 15 * time.Minute, // Inbound: Write entire response to client (allows long SSE streams, still bounded)
		IdleTimeout:  90 * time.Second, // Inbound: Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
