package proxy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelrouter/proxy/internal/dispatch"
	"github.com/modelrouter/proxy/internal/translate"
	"github.com/modelrouter/proxy/internal/wire"
)

// MessagesHandler serves POST /v1/messages.
type MessagesHandler struct {
	dispatcher *dispatch.Dispatcher
}

// Compile-time check that MessagesHandler implements http.Handler
var _ http.Handler = (*MessagesHandler)(nil)

func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		writeError(ctx, w, http.StatusUnauthorized, wire.ErrAuthentication, "missing API key")
		return
	}

	var req wire.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, wire.ErrInvalidRequest, "invalid JSON body: "+err.Error())
		return
	}

	if req.Stream {
		h.serveStream(w, r, &req, token)
		return
	}

	resp, err := h.dispatcher.Complete(ctx, token, &req)
	if err != nil {
		status, kind, message := errorParts(err)
		writeError(ctx, w, status, kind, message)
		return
	}
	writeJSON(ctx, w, resp, http.StatusOK)
}

// serveStream creates the SSE writer lazily, on the first emitted event.
// Until then the response is uncommitted, so upstream rejections (including
// the wrong-flavor retry path) can still answer with a plain JSON error.
func (h *MessagesHandler) serveStream(w http.ResponseWriter, r *http.Request, req *wire.MessagesRequest, token string) {
	ctx := r.Context()

	var sse *SSEWriter
	emit := func(event wire.StreamEvent) error {
		if sse == nil {
			writer, err := NewSSEWriter(w)
			if err != nil {
				return err
			}
			sse = writer
		}
		return sse.WriteEvent(event.Name, event.Data)
	}

	if err := h.dispatcher.Stream(ctx, token, req, emit); err != nil {
		if sse != nil {
			// Bytes are committed; the stream either carried its own error
			// event or the client went away.
			slog.ErrorContext(ctx, "stream aborted", "error", err)
			return
		}
		status, kind, message := errorParts(err)
		writeError(ctx, w, status, kind, message)
	}
}

// errorParts maps a dispatcher failure onto an HTTP status and error
// envelope. Transport-level failures stay opaque to the client.
func errorParts(err error) (int, string, string) {
	var apiErr *dispatch.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Kind, apiErr.Message
	}
	var streamErr *translate.StreamError
	if errors.As(err, &streamErr) {
		return http.StatusBadGateway, streamErr.Kind, streamErr.Message
	}
	return http.StatusBadGateway, wire.ErrAPI, "upstream request failed"
}

// bearerToken extracts the client's token from the Authorization header or
// the x-api-key header Anthropic clients use.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("x-api-key"))
}
