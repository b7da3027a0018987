package fileio

import "errors"

// Common errors for windowed file access.
var (
	// ErrNotOpen is returned by operations that require an open file.
	ErrNotOpen = errors.New("fileio: no file open")
	// ErrOutOfBounds is returned when a requested range extends past the
	// end of the file. Short reads are never returned silently.
	ErrOutOfBounds = errors.New("fileio: range out of bounds")
	// ErrReleased is returned when a window is used after release.
	ErrReleased = errors.New("fileio: window released")
)
