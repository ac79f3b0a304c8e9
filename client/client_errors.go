package client

import "fmt"

// AuthenticationError means a credential could not be obtained before the
// call; no network activity took place.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransientError is the terminal form of a connection-level failure, surfaced
// only after the retry budget is exhausted.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// APIError is an HTTP error response (status >= 400) from the external
// service. These are never retried.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ParseError means the service responded with a success status but a body
// that violates the JSON contract.
type ParseError struct {
	Status int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable response body (status %d): %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FileNotFoundError means a multipart upload was requested for a file that
// does not exist. No network activity took place.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}
