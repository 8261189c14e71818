// Package apierrors provides structured API error codes and responses for
// the panel's HTTP surface. All codes are namespaced (e.g.,
// "core:unauthorized", "stats:extension_not_found").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	// Authentication
	CodeUnauthorized       = "core:unauthorized"
	CodeInvalidCredentials = "core:invalid_credentials"
	CodeInvalidToken       = "core:invalid_token"

	// Request errors
	CodeInvalidRequest = "core:invalid_request"
	CodeRateLimited    = "core:rate_limited"

	// Server errors
	CodeInternalError = "core:internal_error"

	// Statistics API
	CodeExtensionNotFound = "stats:extension_not_found"
	CodeQueueNotFound     = "stats:queue_not_found"
)

// coreErrors defines all error codes with their default messages and HTTP
// status.
var coreErrors = []ErrorCode{
	{Code: CodeUnauthorized, Message: "Authentication required", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeInvalidCredentials, Message: "Invalid extension or password", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeInvalidToken, Message: "Invalid or expired token", HTTPStatus: http.StatusUnauthorized},

	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},

	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},

	{Code: CodeExtensionNotFound, Message: "Extension not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeQueueNotFound, Message: "Queue not found", HTTPStatus: http.StatusNotFound},
}

func init() {
	for _, e := range coreErrors {
		Registry.Register(e)
	}
}
