// Package errors builds the JSON error envelope returned by the HTTP server.
package errors

import (
	"encoding/json"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"
)

// Error codes used in HTTP responses.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// HTTPError is the body of an error response.
type HTTPError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the error envelope: {"error": {...}}.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// NewEnvelope builds an error envelope. The request ID becomes the
// correlation ID and details become the envelope context.
func NewEnvelope(code, message, requestID string, details map[string]any) *gferrors.ErrorEnvelope {
	envelope := gferrors.NewErrorEnvelope(code, message)
	if requestID != "" {
		envelope = envelope.WithCorrelationID(requestID)
	}
	if len(details) > 0 {
		if withContext, err := envelope.WithContext(details); err == nil {
			envelope = withContext
		}
	}
	return envelope
}

// WriteErrorResponse writes envelope as an error response.
func WriteErrorResponse(w http.ResponseWriter, envelope *gferrors.ErrorEnvelope, status int) {
	WriteJSON(w, status, HTTPErrorResponse{Error: HTTPError{
		Code:      envelope.Code,
		Message:   envelope.Message,
		RequestID: envelope.CorrelationID,
		Details:   envelope.Context,
	}})
}

// RespondWithError writes an error envelope. The request ID is taken from
// the response headers, where the request ID middleware puts it.
func RespondWithError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	WriteErrorResponse(w, NewEnvelope(code, message, w.Header().Get(RequestIDHeader), details), status)
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NotFoundHandler responds 404 with the standard envelope.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, CodeNotFound, "no route for "+r.Method+" "+r.URL.Path, nil)
}

// MethodNotAllowedHandler responds 405 with the standard envelope.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method "+r.Method+" not allowed for "+r.URL.Path, nil)
}
