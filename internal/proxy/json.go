package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/modelrouter/proxy/internal/wire"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeError writes the Anthropic error envelope with the given status code.
func writeError(ctx context.Context, w http.ResponseWriter, status int, kind, message string) {
	writeJSON(ctx, w, wire.NewErrorResponse(kind, message), status)
}
