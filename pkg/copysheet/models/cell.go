// Package models defines data structures reported by the harvest and reconcile routines.
package models

// CellUpdate represents a single string write into a worksheet cell.
type CellUpdate struct {
	// Row is the row index (1-based).
	Row int `json:"row"`
	// Col is the column index (1-based).
	Col int `json:"col"`
	// Value is the written text.
	Value string `json:"value"`
}
