package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Stable error codes. Every failed call resolves to exactly one code:
// a backend-supplied code when the response body carries one, else an
// HTTP-status-derived code, else network_error for transport failures.
const (
	CodeNetworkError = "network_error"
	CodeUnknownError = "unknown_error"

	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingAdminToken  = "missing_admin_token"
)

// Error is the normalized form of every failed API call.
type Error struct {
	// Code is the stable error code, see the Code constants.
	Code string
	// Status is the HTTP status when a response was received, else 0.
	Status int
}

func (e *Error) Error() string {
	return e.Code
}

// CodeOf extracts the normalized code from any error returned by this
// package. Unrecognized errors map to unknown_error.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeUnknownError
}

// StatusOf extracts the HTTP status from a normalized error, or 0 when no
// response was received.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// httpCode derives the generic code for an HTTP status ("HTTP_401").
func httpCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// normalizeTransportError maps a failure that produced no HTTP response.
// Timeouts, connection refusals, and cancellations all classify as
// network_error: none of them says anything about the token.
func normalizeTransportError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeNetworkError}
}

// normalizeResponseError maps a non-2xx response. The backend's
// `{"error":"<code>"}` body convention wins over the status-derived code.
func normalizeResponseError(resp *http.Response) *Error {
	apiErr := &Error{Code: httpCode(resp.StatusCode), Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Error
	}
	return apiErr
}
