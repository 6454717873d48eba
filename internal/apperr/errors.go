// Package apperr defines the error taxonomy shared across the glossary core.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrCacheMiss      = errors.New("cache miss")
	ErrUnknownSubject = errors.New("unknown subject")
)

// NetworkError indicates the remote source was unreachable, timed out or
// answered with a failure status.
type NetworkError struct {
	Op        string
	Status    int // HTTP status, 0 when no response was received
	Cause     error
	Retryable bool
}

func (e *NetworkError) Error() string {
	msg := "network error: " + e.Op
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ParseError indicates a malformed response shape.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a serialization or storage fault.
type CacheError struct {
	Op    string
	Cause error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Op)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a NetworkError marked retryable.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Retryable
	}
	return false
}
