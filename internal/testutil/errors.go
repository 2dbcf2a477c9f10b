package testutil

import "errors"

// Common test errors
var (
	ErrTestFailure = errors.New("test failure")
	ErrUnavailable = errors.New("service unavailable")
)
