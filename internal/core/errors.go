package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeClientNotFound = "client_not_found"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotActive      = "not_active"
	ErrCodeAlreadyActive  = "already_active"
	ErrCodeInvalidAddress = "invalid_address"
	ErrCodeUnauthorized   = "unauthorized"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientClosed   = errors.New("client connection closed")
	ErrSlowConsumer   = errors.New("client outbox full")
	ErrEmptyName      = errors.New("username is empty")
	ErrNameAlreadySet = errors.New("username already set")
	ErrNotAuthorized  = errors.New("client is not authenticated")
	ErrDuplicateID    = errors.New("client id already registered")
	ErrEmptyMessage   = errors.New("message is empty")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// NewCoreError builds a CoreError around a sentinel.
func NewCoreError(code string, err error) *CoreError {
	return &CoreError{Code: code, Message: err.Error(), Err: err}
}
