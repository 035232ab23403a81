// Package copysheet keeps license copyright bookkeeping in xlsx workbooks.
//
// Harvest downloads the package archive named on each row, finds its license
// files and writes the copyright lines back into the row. Reconcile copies a
// value between two workbooks for every key listed in a third.
package copysheet

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/license"
)

// DefaultJournalPath is where progress is journaled unless configured otherwise.
const DefaultJournalPath = ".copysheet/journal.db"

// Persistence configures incremental saving.
type Persistence struct {
	// JournalPath is the SQLite progress journal. Empty disables journaling and resume.
	JournalPath string
	// SaveEvery checkpoints the workbook every N processed rows. Zero saves only at the end.
	SaveEvery int
}

// HarvestConfig configures Harvest.
type HarvestConfig struct {
	// Workbook is the spreadsheet listing the packages.
	Workbook string
	// Output is where the updated workbook is written. Empty means Workbook.
	Output string
	// PackagesDir receives downloaded archives.
	PackagesDir string
	// ExtractDir receives extracted package trees.
	ExtractDir string
	// FirstRow is the first row examined (1-based).
	FirstRow int
	// URLColumn holds the package download URL (1-based).
	URLColumn int
	// CopyrightColumn receives the copyright lines (1-based).
	CopyrightColumn int
	// Search selects the license search backend: "exec" or "builtin".
	Search string
	// LicensePattern is matched case-insensitively against file names.
	LicensePattern string
	// CopyrightMarker selects copyright lines inside license files.
	CopyrightMarker string
	// KeepArtifacts leaves archives and extracted trees on disk.
	KeepArtifacts bool
	// Rate limits downloads per second. Zero means unlimited.
	Rate float64
	// Timeout bounds each download. Zero means no timeout.
	Timeout time.Duration
	// HTTPClient overrides the download client.
	HTTPClient *http.Client
	// Logger receives progress messages. Nil uses slog.Default().
	Logger *slog.Logger

	Persistence
}

// DefaultHarvestConfig returns the harvest defaults.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		Workbook:        "Book3.xlsx",
		PackagesDir:     "packages",
		ExtractDir:      "extractedPackages",
		FirstRow:        1,
		URLColumn:       13,
		CopyrightColumn: 12,
		Search:          license.BackendExec,
		LicensePattern:  license.DefaultPattern,
		CopyrightMarker: license.DefaultMarker,
		Persistence: Persistence{
			JournalPath: DefaultJournalPath,
		},
	}
}

// OutputPath returns the path the workbook is saved to.
func (c HarvestConfig) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Workbook
}

// ReconcileConfig configures Reconcile.
type ReconcileConfig struct {
	// Probe lists the keys to reconcile.
	Probe string
	// Search holds the values to copy.
	Search string
	// Update receives the copied values.
	Update string
	// Output is where the updated workbook is written. Empty means Update.
	Output string

	ProbeKeyColumn    int
	SearchKeyColumn   int
	SearchValueColumn int
	UpdateKeyColumn   int
	UpdateValueColumn int

	// Logger receives progress messages. Nil uses slog.Default().
	Logger *slog.Logger

	Persistence
}

// DefaultReconcileConfig returns the reconcile defaults.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Probe:             "Book2.xlsx",
		Search:            "2search.xlsx",
		Update:            "2update.xlsx",
		ProbeKeyColumn:    1,
		SearchKeyColumn:   4,
		SearchValueColumn: 14,
		UpdateKeyColumn:   4,
		UpdateValueColumn: 12,
		Persistence: Persistence{
			JournalPath: DefaultJournalPath,
		},
	}
}

// OutputPath returns the path the update workbook is saved to.
func (c ReconcileConfig) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Update
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
