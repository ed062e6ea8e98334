package persist

import (
	"errors"
	"fmt"
)

// ErrPersistence matches every error returned by this package
var ErrPersistence = errors.New("persistence error")

// PersistenceError records a failed file operation.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Path: path, Err: err}
}
