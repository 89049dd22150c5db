package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kashvijewels/jewel-shop/internal/service"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

var validate = validator.New()

// writeJSON sends v as the response body with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// statusFromError maps the service failure taxonomy onto HTTP codes.
// Internal details never cross the boundary; callers pair this with a
// terse message.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrEmptyOrder):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// reason unwraps the terse user-visible message for a mapped error; internal
// errors collapse to a generic string.
func reason(err error) string {
	for _, sentinel := range []error{
		storage.ErrOrderNotFound,
		storage.ErrUserNotFound,
		storage.ErrProductNotFound,
		service.ErrForbidden,
		service.ErrInvalidState,
		service.ErrAlreadyCancelled,
		service.ErrInvalidSignature,
		service.ErrEmptyOrder,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError logs the full error and sends only the mapped reason.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	log.Error("request failed", slog.Any("error", err))
	writeJSON(w, log, statusFromError(err), errorResponse{Error: reason(err)})
}
