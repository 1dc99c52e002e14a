package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// Authentication Errors
	ErrUnauthorized   = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden      = errors.New("forbidden")    // Authenticated, but lacks permission
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Provider Errors
	ErrProviderUnavailable = errors.New("upstream provider unavailable")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)

// ErrorResponse тело ответа для ошибок, не связанных с генерацией.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GenerationErrorResponse тело ответа при неудачной генерации истории.
type GenerationErrorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	Type        string `json:"type,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// Error codes used in ErrorResponse.Code.
const (
	ErrCodeBadRequest   = 40000
	ErrCodeUnauthorized = 40100
	ErrCodeForbidden    = 40300
	ErrCodeNotFound     = 40400
	ErrCodeRateLimited  = 42900
	ErrCodeInternal     = 50000
	ErrCodeUpstream     = 50200
)
