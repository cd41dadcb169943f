package service

import "errors"

var (
	// 400
	ErrInvalidInput = errors.New("invalid input")

	// 401
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")

	// 404
	ErrNotFound = errors.New("not found")

	// 409
	ErrConflict = errors.New("user already exists")

	// 503
	ErrExternalDisabled = errors.New("external provider not configured")

	// startup
	ErrMisconfigured = errors.New("config invalid")
)
