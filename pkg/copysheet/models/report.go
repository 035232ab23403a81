package models

// Status describes the outcome of one processed row.
type Status string

const (
	// StatusWritten means a value was written into the target cell.
	StatusWritten Status = "written"
	// StatusNoURL means the harvester row had an empty URL cell.
	StatusNoURL Status = "no_url"
	// StatusNoLicense means the extracted package had no license file.
	StatusNoLicense Status = "no_license"
	// StatusNoCopyright means license files were found without a copyright line.
	StatusNoCopyright Status = "no_copyright"
	// StatusNotFound means a reconciler key was missing from the search or update sheet.
	StatusNotFound Status = "not_found"
	// StatusResumed means the row was completed by an earlier run and replayed from the journal.
	StatusResumed Status = "resumed"
)

// RowResult records what happened to a single row.
type RowResult struct {
	// Step is the loop row (harvester row or probe row).
	Step int `json:"step"`
	// Key is the row's URL (harvester) or lookup key (reconciler).
	Key string `json:"key,omitempty"`
	// Status is the row outcome.
	Status Status `json:"status"`
	// Update is the cell write performed for the row, if any.
	Update *CellUpdate `json:"update,omitempty"`
}

// Report summarizes a harvest or reconcile run.
type Report struct {
	// Routine is "harvest" or "reconcile".
	Routine string `json:"routine"`
	// Workbook is the workbook that received the writes.
	Workbook string `json:"workbook"`
	// Output is the path the workbook was saved to.
	Output string `json:"output"`
	// Rows lists per-row outcomes in processing order.
	Rows []RowResult `json:"rows,omitempty"`
	// Written counts rows with a cell write.
	Written int `json:"written"`
	// Skipped counts rows without a cell write.
	Skipped int `json:"skipped"`
}

// Add appends a row result and updates the counters.
func (r *Report) Add(res RowResult) {
	r.Rows = append(r.Rows, res)
	if res.Update != nil {
		r.Written++
	} else {
		r.Skipped++
	}
}
