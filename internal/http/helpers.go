package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"saldo/internal/core"
)

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// generateUploadName builds a collision-free file name for a spooled upload.
func generateUploadName() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("upload_%d.csv", time.Now().UnixNano())
	}
	return "upload_" + hex.EncodeToString(bytes) + ".csv"
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Unexpected
// errors are logged and answered with a generic message so internal
// details never leak to the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, core.ErrInvalidBalance), errors.Is(err, core.ErrImportFailed):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
		slog.ErrorContext(ctx, "Request failed", "error", err)
	}

	writeJSON(ctx, w, status, map[string]string{"error": message})
}
