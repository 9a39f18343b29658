package domain

import "errors"

// Credential flow outcomes. Each use case returns exactly one of these or nil.
var (
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrDuplicateUsername  = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// ErrConcurrentUpdate is returned by the identity store when a
// compare-and-swap update loses against a concurrent writer.
var ErrConcurrentUpdate = errors.New("identity was modified concurrently")

// ErrInternal marks storage and infrastructure faults. The underlying cause
// is logged, never exposed to callers.
var ErrInternal = errors.New("internal error")
