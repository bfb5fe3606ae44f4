package transport

import (
	"encoding/json"
	"net/http"

	"github.com/castellet/agentgate/pkg/api"
)

// HTTPStatusFromError maps an APIError type to an HTTP status code.
// Handler failures are normally delivered in-band (an error payload or a
// terminal error event); they only reach this mapping when a call could
// not produce any response at all.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest, api.ErrorTypeProtocolViolation:
		return http.StatusBadRequest
	case api.ErrorTypeResumeUnavailable:
		return http.StatusNotFound
	case api.ErrorTypeHandlerFailure, api.ErrorTypeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error body with the given status.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError, deriving the status from its type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
