package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/streamhub/internal/apperror"
)

// Envelope is the uniform response shape every endpoint returns: a status
// flag, a human-readable message, the payload, and an error list when
// applicable.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// writeJSON sends an envelope with the given status code. Headers and status
// must be written before the body.
func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeOK sends a success envelope.
func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// writeError is the single boundary translator from domain errors to HTTP.
//
// Typed errors map onto their status codes; anything else becomes a 500
// with a generic message while the full error is logged server-side. The
// service layer never sees HTTP status codes.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "something went wrong"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		}
		if status != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}

	writeJSON(w, status, Envelope{
		Success: false,
		Message: message,
		Errors:  []string{message},
	})
}

// decodeJSON decodes a request body into dst, translating failures into a
// validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid request body")
	}
	return nil
}
