package token

import "errors"

var (
	// ErrUnauthorized is returned when the caller's roles do not intersect
	// the configured allow-list.
	ErrUnauthorized = errors.New("identity not authorized for credential issuance")

	// ErrSigningFailed is returned when the signing secret is missing or the
	// signing primitive fails.
	ErrSigningFailed = errors.New("credential signing failed")
)
