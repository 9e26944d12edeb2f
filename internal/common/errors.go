// Package common defines shared constants and sentinel errors used across
// client and server layers of tokenkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Credential and registration errors.
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrDuplicateRegistration = errors.New("email already registered")

	// Access token errors.
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownSubject = errors.New("token subject not found")

	// Refresh rotation errors.
	ErrNoValidToken          = errors.New("no valid refresh token")
	ErrAmbiguousRefreshState = errors.New("more than one valid refresh token")
	ErrSlotConflict          = errors.New("refresh slot changed concurrently")

	// Claims assembly errors.
	ErrClaimsBuildFailure = errors.New("could not build claims")
)
