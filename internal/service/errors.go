package service

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates the resource collides with an existing one.
	ErrConflict = errors.New("resource already exists")
	// ErrInvalid indicates the request payload failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
