package models

import "errors"

var (
	// ErrNotFound signals a cache miss. Callers fall through to the external source.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an occupation name is already indexed under another code.
	ErrConflict = errors.New("conflict")
	// ErrDanglingReference is returned when a detail is written for a code no index entry owns.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrExternalSourceFailed wraps classification, detail and generation failures.
	ErrExternalSourceFailed = errors.New("external source failed")
	// ErrStorageUnavailable wraps backend failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidInput is returned for empty names or queries and unknown sections.
	ErrInvalidInput = errors.New("invalid input")
)
