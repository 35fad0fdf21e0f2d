// Package response writes the worker's JSON envelopes. Every body has a
// data field on success and an error field on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/lineup/pkg/errors"
)

// Response is the envelope of every JSON body.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail wraps an error.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with status.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail("METHOD_NOT_ALLOWED", "Method not allowed", "Method "+method+" is not supported for this endpoint"))
}

// Conflict writes a 409.
func Conflict(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusConflict, Fail("CONFLICT", message, details))
}

// Unprocessable writes a 422.
func Unprocessable(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusUnprocessableEntity, Fail("UNPROCESSABLE", message, details))
}

// InternalError writes a 500 without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail("INTERNAL_ERROR", "Internal server error", "An unexpected error occurred"))
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// ErrorFromType maps the error taxonomy to status codes.
func ErrorFromType(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	// both also match ErrInvalidInput
	case errors.IsInvalidTransition(err), errors.IsPublishValidation(err):
		Unprocessable(w, err.Error(), "")
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsJobRunning(err), errors.IsDuplicateLink(err), errors.IsLeaseHeld(err):
		Conflict(w, err.Error(), "")
	default:
		InternalError(w, err)
	}
}
