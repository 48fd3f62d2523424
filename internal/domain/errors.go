package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for navigation and loading
var (
	// ErrNotFound indicates the requested file is not in the current directory listing
	ErrNotFound = errors.New("file not in current directory listing")

	// ErrNoFileName indicates the path has no file name component to display
	ErrNoFileName = errors.New("path has no file name component")

	// ErrEmptyDirectory indicates the current directory holds no loadable images
	ErrEmptyDirectory = errors.New("directory contains no images")

	// ErrUpload indicates GPU texture creation failed for a decoded buffer
	ErrUpload = errors.New("texture upload failed")
)

// DecodeError wraps an image decode failure together with the stack captured
// on the worker goroutine where it happened, so the render thread can report
// where a background decode actually failed.
type DecodeError struct {
	Path  string
	Err   error
	Stack []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
