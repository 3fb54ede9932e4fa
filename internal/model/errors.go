package model

import "errors"

var (
	// ErrInvalidInput marks malformed or unordered bar sequences.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks analysis parameters that cannot be used.
	ErrConfiguration = errors.New("configuration error")
)
