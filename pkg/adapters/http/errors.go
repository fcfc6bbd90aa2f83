package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/reviewlink/pkg/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransportUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrChannel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs the full error and sends only the user-safe message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	} else {
		logger.Warn("Request rejected", "status", status, "error", err)
	}
	writeJSON(w, logger, status, errorBody{Error: domain.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}
