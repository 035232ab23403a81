// Package sheet provides 1-based cell access to xlsx workbooks.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ErrNoWorksheet indicates the workbook contains no worksheet.
var ErrNoWorksheet = errors.New("workbook has no worksheet")

// Workbook is an xlsx document opened from disk.
type Workbook struct {
	path string
	f    *excelize.File
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f}, nil
}

// Path returns the path the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// First returns the first worksheet in workbook order.
func (w *Workbook) First() (*Sheet, error) {
	sheetList := w.f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, ErrNoWorksheet
	}
	return w.Sheet(sheetList[0])
}

// Sheet returns the named worksheet.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return &Sheet{f: w.f, name: name, rows: len(rows)}, nil
}

// SaveAs writes the workbook to path, creating parent directories.
func (w *Workbook) SaveAs(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheet is a single worksheet addressed by 1-based row and column numbers.
type Sheet struct {
	f    *excelize.File
	name string
	rows int
}

// Name returns the worksheet name.
func (s *Sheet) Name() string {
	return s.name
}

// RowCount returns the number of the last row holding data.
func (s *Sheet) RowCount() int {
	return s.rows
}

// Cell returns the formatted value at (row, col). Empty cells read as "".
func (s *Sheet) Cell(row, col int) (string, error) {
	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return s.f.GetCellValue(s.name, cellName)
}

// SetCell stores value as a string at (row, col).
func (s *Sheet) SetCell(row, col int, value string) error {
	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := s.f.SetCellStr(s.name, cellName, value); err != nil {
		return err
	}
	if row > s.rows {
		s.rows = row
	}
	return nil
}
