package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeChallenge   ErrorType = "challenge"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a remote API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// ChallengeURL is set when the platform asks for an interactive verification
	ChallengeURL string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New builds a typed error
func New(errType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsThrottled reports whether err is the platform's rate-limit signal
func IsThrottled(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeRateLimit
}

// IsNotFound reports whether err means the requested resource does not exist
func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNotFound
}

// IsChallenge reports whether err requires the user to complete a verification challenge
func IsChallenge(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeChallenge
}

// ChallengeURL extracts the remediation link from a challenge error
func ChallengeURL(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.ChallengeURL
	}
	return ""
}

// IsRetryable checks if an error type should be retried by the transport.
// Rate limiting is surfaced to callers instead of being retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	case ErrorTypeRateLimit, ErrorTypeAuth, ErrorTypeChallenge, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

