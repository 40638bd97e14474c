// Package apperr holds the sentinel errors shared across provtrack packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownParent = errors.New("unknown parent")
	ErrMissingFile   = errors.New("file does not exist")
	ErrMalformed     = errors.New("malformed input")
)
