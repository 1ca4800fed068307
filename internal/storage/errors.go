package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrCorrupted matches any CorruptFileError
var ErrCorrupted = errors.New("data file is corrupted")

// CorruptFileError reports a data file that exists but does not parse.
// Writes that would replace the file are refused while it is in this state.
type CorruptFileError struct {
	Path string
	Err  error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }

func (e *CorruptFileError) Is(target error) bool { return target == ErrCorrupted }
