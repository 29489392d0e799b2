package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ragbench/internal/domain"
)

type errorBody struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	reqID := requestIDFrom(r.Context())

	body := errorBody{Detail: err.Error()}
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		body.Detail = "Query parameter 'q' is required"
	case errors.Is(err, domain.ErrEmptyIndex):
		body.Detail = "Vector store is empty. Ingest some data first."
	case status >= http.StatusInternalServerError:
		s.log.Error().Err(err).Str("request_id", reqID).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusInternalServerError {
			body.Detail = "Internal server error"
		}
		body.RequestID = reqID
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
