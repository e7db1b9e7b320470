package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"meudinheiro/internal/core"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/log"
	"meudinheiro/internal/parser"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, parser.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrMonthExists), errors.Is(err, core.ErrLastMonth):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrNotConfigured), errors.Is(err, parser.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, parser.ErrBadResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes the status mapped from err. Server-side failures
// are logged and, except for 503, answered with the generic status text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	writeStatusError(w, r, errorStatus(err), err)
}

func writeStatusError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status < 500 {
		writeError(w, status, err.Error())
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldStatusCode, status, log.FieldError, err)
	if status == http.StatusServiceUnavailable {
		writeError(w, status, err.Error())
		return
	}
	writeError(w, status, http.StatusText(status))
}

// urlParam returns a decoded route parameter. chi matches on RawPath when
// the request has one, so its params are still escaped in that case.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
