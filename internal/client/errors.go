package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request or dial timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates the node answered with an error status
	ErrTypeHTTP
	// ErrTypeParse indicates an unparseable response body
	ErrTypeParse
	// ErrTypeValidation indicates the request was rejected before sending
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Client method.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int   // HTTP status, for ErrTypeHTTP
	Err        error // Underlying error, if any
	Retryable  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// classifyNetworkError sorts a transport failure into a more specific type.
func classifyNetworkError(message string, err error) *Error {
	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Type: ErrTypeDNS, Message: message, Err: err, Retryable: false}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// newHTTPError records an error status. 5xx and 408 are retryable; the
// node answers 400, 404, 413 and 501 deterministically.
func newHTTPError(statusCode int, body string) *Error {
	msg := fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode))
	if body = strings.TrimSpace(body); body != "" && !strings.HasPrefix(body, "<") {
		msg += ": " + body
	}
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    msg,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500 || statusCode == http.StatusRequestTimeout,
	}
}

func newParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err}
}

func newValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// requestNotSent reports whether err was raised before the node could
// have read the request.
func requestNotSent(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeConnectionRefused
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Type == ErrTypeHTTP {
		return e.StatusCode
	}
	return 0
}

// ShortMessage returns a concise, user-facing description of err.
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Node not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Node refused connection - is remoteconfigd running?"
	case ErrTypeDNS:
		return "Cannot resolve node hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		switch e.StatusCode {
		case http.StatusBadRequest:
			return "Request rejected by node (HTTP 400)"
		case http.StatusNotFound:
			return "Not available on this node (HTTP 404)"
		case http.StatusRequestEntityTooLarge:
			return "Request too large for node buffer (HTTP 413)"
		case http.StatusNotImplemented:
			return "Method not enabled on node (HTTP 501)"
		}
		return fmt.Sprintf("Node error (HTTP %d)", e.StatusCode)
	case ErrTypeParse:
		return "Failed to parse node response"
	default:
		return e.Message
	}
}
