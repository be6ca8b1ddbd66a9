package etl

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownFile   = errors.New("unknown file type")
	// ErrPartialWrite marks a failure after at least one chunk was committed.
	ErrPartialWrite = errors.New("partial write")
)

func writeError(kind string, written int, err error) error {
	if written > 0 {
		return fmt.Errorf("upsert %s after %d written: %w: %w", kind, written, ErrPartialWrite, err)
	}
	return fmt.Errorf("upsert %s after %d written: %w", kind, written, err)
}

// CellError locates a cell that could not be parsed.
type CellError struct {
	Line   int
	Column string
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d: invalid %s value %q", e.Line, e.Column, e.Value)
}
