package domain

import "errors"

var (
	ErrTokenMissing             = errors.New("token missing")
	ErrTokenMalformed           = errors.New("token malformed")
	ErrTokenExpired             = errors.New("token expired")
	ErrTokenInvalid             = errors.New("token invalid")
	ErrRemoteServiceUnreachable = errors.New("remote service unreachable")
	ErrRemoteServiceError       = errors.New("remote service error")
	ErrForbidden                = errors.New("forbidden")
	ErrProbeFailure             = errors.New("probe failure")
	ErrNotConfigured            = errors.New("not configured")
)
