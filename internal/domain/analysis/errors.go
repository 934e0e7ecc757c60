package analysis

import "errors"

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidInput wraps request validation failures
var ErrInvalidInput = errors.New("invalid input")
