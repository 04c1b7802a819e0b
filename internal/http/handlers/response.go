// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including the success/error envelope, consistent JSON serialization, and
// helpers for common HTTP patterns. The goal is to guarantee uniform responses
// for both success and failure cases, making the API predictable and
// machine-friendly.
//
// Conventions:
//   - Every response carries a top-level `success` flag.
//   - All error responses must return an ErrorBody with a stable `code`.
//   - `fail()` centralizes error logging and formatting, ensuring 5xx responses
//     are logged with request context for observability.
//   - `ok()` and `noContent()` simplify writing success responses in a
//     consistent shape across handlers.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "error": { "code": "not_found", "message": "order not found" }
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "success": true, "data": { "id": "abc123", "status": "pending" } }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-commerce-backend/internal/http/middleware"
)

// ErrorBody carries the machine-readable error detail inside ErrorResponse.
type ErrorBody struct {
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"order not found"`
}

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - Success: always false for errors; lets clients branch on one flag.
//   - RequestID: optional correlation ID, echoed from X-Request-ID header,
//     used to correlate server logs with client-side errors.
//   - Error: the stable code plus a human-readable description.
//
// This struct is used in OpenAPI documentation via Swagger annotations.
type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	// Correlates server logs and client errors
	RequestID string    `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Error     ErrorBody `json:"error"`
}

// SuccessResponse is the standard success envelope returned by all endpoints.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
//
// It constructs an ErrorResponse, writes it as JSON with the given HTTP status,
// and calls gin.Context.AbortWithStatusJSON to stop further processing.
//
// Server errors (>=500) are logged using the request-scoped logger from middleware.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		Success:   false,
		RequestID: reqID,
		Error:     ErrorBody{Code: code, Message: msg},
	}

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
//
// It wraps `body` in the success envelope and serializes it with the given
// HTTP status code.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, SuccessResponse{Success: true, Data: body})
}

// noContent writes an HTTP 204 No Content response.
//
// Used when the operation succeeds but there is no response body.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
