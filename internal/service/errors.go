package service

import "errors"

// Common service errors. Handlers classify failures with errors.Is against
// these and map them to HTTP statuses.
var (
	ErrValidation      = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrUpstreamParsing = errors.New("parsing service failed")
	ErrStorage         = errors.New("object storage failed")
	ErrPersistence     = errors.New("question store write failed")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
