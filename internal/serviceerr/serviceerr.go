// Package serviceerr defines the typed error family surfaced to REST
// consumers. Every error maps to a fixed HTTP status and a
// {code, message} envelope; anything outside this family is reported as
// an opaque 500.
package serviceerr

import "net/http"

// Error is a service-level failure with a fixed HTTP status.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func newError(code int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Code: code, Message: message}
}

// Request reports malformed input or a validation failure (400).
func Request(message string) *Error {
	return newError(http.StatusBadRequest, message, "Request error")
}

// Authorization reports absent authentication where it is required (401).
func Authorization(message string) *Error {
	return newError(http.StatusUnauthorized, message, "Unauthorized")
}

// Credential reports a forbidden request or bad credentials (403).
func Credential(message string) *Error {
	return newError(http.StatusForbidden, message, "Forbidden")
}

// NotFound reports a missing collection or record (404).
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, message, "Resource not found")
}

// Conflict reports a duplicate resource (409).
func Conflict(message string) *Error {
	return newError(http.StatusConflict, message, "Resource conflict")
}
