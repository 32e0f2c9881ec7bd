package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a principal or credential does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a principal whose identifier is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidContext is returned when an AuthenticationContext is missing a required field.
	ErrInvalidContext = errors.New("invalid authentication context")
)
