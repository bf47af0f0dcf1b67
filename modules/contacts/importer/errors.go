package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrInvalidAction = errors.New("invalid action")
	ErrNoMatches     = errors.New("duplicate entry requires at least one match")
)

// UnsupportedFormatError is returned for any file extension other than .csv, .xlsx and .xls.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q (expected .csv, .xlsx or .xls)", e.Ext)
}

// MissingRequiredFieldError describes a row rejected during projection.
type MissingRequiredFieldError struct {
	Row    int
	Fields []Field
}

func (e *MissingRequiredFieldError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, string(f))
	}
	return fmt.Sprintf("Row %d: missing required field %s", e.Row, strings.Join(names, ", "))
}

// AlreadyResolvedError guards against resolving the same entry twice.
type AlreadyResolvedError struct {
	Index      int
	Resolution string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("entry %d is already resolved (%s)", e.Index, e.Resolution)
}

// StorePersistenceError wraps a failure reported by the contact store.
type StorePersistenceError struct {
	Op    string
	Index int
	Err   error
}

func (e *StorePersistenceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed for entry %d: %v", e.Op, e.Index, e.Err)
}

func (e *StorePersistenceError) Unwrap() error {
	return e.Err
}

func entryNotFound(idx int) error {
	return fmt.Errorf("%w: %d", ErrEntryNotFound, idx)
}
