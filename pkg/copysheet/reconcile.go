package copysheet

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/sheet"
)

// NotFound is the row FindIndex reports alongside ok == false.
const NotFound = -1

// CellReader is the read side of a worksheet.
type CellReader interface {
	RowCount() int
	Cell(row, col int) (string, error)
}

// FindIndex scans rows 1 through RowCount-1 and returns the first row whose
// cell at col equals key exactly. When nothing matches it returns NotFound and
// ok == false; callers must not address cells with that row.
func FindIndex(key string, s CellReader, col int) (row int, ok bool, err error) {
	for i := 1; i < s.RowCount(); i++ {
		v, err := s.Cell(i, col)
		if err != nil {
			return NotFound, false, err
		}
		if v == key {
			return i, true, nil
		}
	}
	return NotFound, false, nil
}

// Reconcile copies, for every key in the probe sheet, the search sheet's value
// column into the update sheet's value column on the rows where the key
// appears. Keys missing from either sheet are logged and skipped.
func Reconcile(ctx context.Context, cfg ReconcileConfig) (*models.Report, error) {
	err := checkColumns(
		[]string{"probe key column", "search key column", "search value column", "update key column", "update value column"},
		cfg.ProbeKeyColumn, cfg.SearchKeyColumn, cfg.SearchValueColumn, cfg.UpdateKeyColumn, cfg.UpdateValueColumn)
	if err != nil {
		return nil, err
	}

	books := make([]*sheet.Workbook, 0, 3)
	defer func() {
		for _, wb := range books {
			wb.Close()
		}
	}()

	inputs := []string{cfg.Probe, cfg.Search, cfg.Update}
	sheets := make([]*sheet.Sheet, 0, 3)
	for _, path := range inputs {
		wb, err := sheet.Open(path)
		if err != nil {
			return nil, err
		}
		books = append(books, wb)

		s, err := wb.First()
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	probe, search, update := sheets[0], sheets[1], sheets[2]

	log := loggerOrDefault(cfg.Logger)
	output := cfg.OutputPath()
	report := &models.Report{Routine: "reconcile", Workbook: books[2].Path(), Output: output}

	prog, resumed, err := openProgress(ctx, cfg.Persistence, report.Routine, inputs, books[2], update, output, log)
	if err != nil {
		return nil, err
	}
	defer prog.Close()

	for _, res := range resumed {
		report.Add(res)
	}

	for i := 1; i <= probe.RowCount(); i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if prog.Done(i) {
			continue
		}

		res, err := reconcileRow(cfg, log, i, probe, search, update)
		if err != nil {
			return report, err
		}
		report.Add(res)

		if err := prog.Record(ctx, res); err != nil {
			return report, err
		}
	}

	if err := prog.Finish(ctx); err != nil {
		return report, err
	}

	log.Info("reconcile complete",
		slog.String("output", output),
		slog.Int("written", report.Written),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

func reconcileRow(cfg ReconcileConfig, log *slog.Logger, i int, probe, search, update *sheet.Sheet) (models.RowResult, error) {
	key, err := probe.Cell(i, cfg.ProbeKeyColumn)
	if err != nil {
		return models.RowResult{}, NewRowError(i, "read", err)
	}
	res := models.RowResult{Step: i, Key: key}

	// a blank key would match the first blank key cell
	if strings.TrimSpace(key) == "" {
		log.Info("probe row has no key", slog.Int("row", i))
		res.Status = models.StatusNotFound
		return res, nil
	}

	searchRow, searchOK, err := FindIndex(key, search, cfg.SearchKeyColumn)
	if err != nil {
		return res, NewRowError(i, "search", err)
	}
	updateRow, updateOK, err := FindIndex(key, update, cfg.UpdateKeyColumn)
	if err != nil {
		return res, NewRowError(i, "search", err)
	}
	if !searchOK || !updateOK {
		log.Warn(key+" not found!",
			slog.Int("row", i),
			slog.Bool("in_search", searchOK),
			slog.Bool("in_update", updateOK))
		res.Status = models.StatusNotFound
		return res, nil
	}

	value, err := search.Cell(searchRow, cfg.SearchValueColumn)
	if err != nil {
		return res, NewRowError(i, "read", err)
	}
	if value == "" {
		log.Info(key, slog.String("reason", "empty search value"), slog.Int("search_row", searchRow))
	}

	if err := update.SetCell(updateRow, cfg.UpdateValueColumn, value); err != nil {
		return res, NewRowError(i, "write", err)
	}
	log.Debug("copied", slog.String("key", key), slog.Int("search_row", searchRow), slog.Int("update_row", updateRow))

	res.Status = models.StatusWritten
	res.Update = &models.CellUpdate{Row: updateRow, Col: cfg.UpdateValueColumn, Value: value}
	return res, nil
}
