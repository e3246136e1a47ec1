package httpapi

import (
	"encoding/json"
	"net/http"

	"modelctl/internal/instance"
	"modelctl/internal/manager"
	"modelctl/internal/ports"
	"modelctl/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case manager.IsModelNotFound(err), manager.IsSessionNotFound(err):
		return http.StatusNotFound
	case manager.IsShuttingDown(err):
		return http.StatusConflict
	case instance.IsProviderError(err), instance.IsInstanceTimeout(err), ports.IsPortExhaustion(err):
		return http.StatusServiceUnavailable
	case manager.IsLaunchError(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Warn().Err(err).Msg("failed to encode response")
	}
}
