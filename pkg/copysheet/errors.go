package copysheet

import (
	"errors"
	"fmt"
)

// ErrNoFilename indicates a package URL ends in "/" and names no file.
var ErrNoFilename = errors.New("url has no file name")

// ErrInvalidColumn indicates a configured column or row number below 1.
var ErrInvalidColumn = errors.New("column and row numbers must be >= 1")

// RowError represents a failure while processing one row.
type RowError struct {
	Row   int
	Stage string // "read", "download", "extract", "search", "write"
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// NewRowError creates a new RowError.
func NewRowError(row int, stage string, err error) *RowError {
	return &RowError{
		Row:   row,
		Stage: stage,
		Err:   err,
	}
}

func checkColumns(names []string, values ...int) error {
	for i, v := range values {
		if v < 1 {
			return fmt.Errorf("%w: %s = %d", ErrInvalidColumn, names[i], v)
		}
	}
	return nil
}
