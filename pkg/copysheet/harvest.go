package copysheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/archive"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/fetch"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/license"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/sheet"
)

// Harvest walks rows FirstRow through RowCount-1 of the workbook's first sheet.
// For each row with a URL it downloads and extracts the archive, searches its
// license files for copyright lines and writes them into CopyrightColumn.
// Rows without a URL, license file or copyright line are left untouched.
// Any download, extraction or search failure stops the run; rows completed
// before it stay in the journal.
func Harvest(ctx context.Context, cfg HarvestConfig) (*models.Report, error) {
	err := checkColumns([]string{"first row", "url column", "copyright column"},
		cfg.FirstRow, cfg.URLColumn, cfg.CopyrightColumn)
	if err != nil {
		return nil, err
	}

	searcher, err := license.New(cfg.Search, license.Options{
		Pattern: cfg.LicensePattern,
		Marker:  cfg.CopyrightMarker,
	})
	if err != nil {
		return nil, err
	}

	wb, err := sheet.Open(cfg.Workbook)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	s, err := wb.First()
	if err != nil {
		return nil, err
	}

	log := loggerOrDefault(cfg.Logger)
	output := cfg.OutputPath()
	report := &models.Report{Routine: "harvest", Workbook: wb.Path(), Output: output}

	prog, resumed, err := openProgress(ctx, cfg.Persistence, report.Routine, []string{wb.Path()}, wb, s, output, log)
	if err != nil {
		return nil, err
	}
	defer prog.Close()

	for _, res := range resumed {
		report.Add(res)
	}

	h := &harvester{
		cfg:      cfg,
		log:      log,
		sheet:    s,
		search:   searcher,
		download: fetch.New(fetch.Options{Timeout: cfg.Timeout, Rate: cfg.Rate, Client: cfg.HTTPClient}),
	}

	last := s.RowCount() - 1
	for row := cfg.FirstRow; row <= last; row++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if prog.Done(row) {
			continue
		}

		res, err := h.row(ctx, row)
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

	log.Info("harvest complete",
		slog.String("output", output),
		slog.Int("written", report.Written),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

type harvester struct {
	cfg      HarvestConfig
	log      *slog.Logger
	sheet    *sheet.Sheet
	search   license.Searcher
	download *fetch.Downloader
}

func (h *harvester) row(ctx context.Context, row int) (models.RowResult, error) {
	rawURL, err := h.sheet.Cell(row, h.cfg.URLColumn)
	if err != nil {
		return models.RowResult{}, NewRowError(row, "read", err)
	}
	rawURL = strings.TrimSpace(rawURL)

	res := models.RowResult{Step: row, Key: rawURL}
	if rawURL == "" {
		h.log.Info("row has no url", slog.Int("row", row))
		res.Status = models.StatusNoURL
		return res, nil
	}
	h.log.Info("row", slog.Int("row", row), slog.String("url", rawURL))

	pkg, err := h.fetchPackage(ctx, row, rawURL)
	if err != nil {
		return res, err
	}
	defer pkg.release()

	paths, err := h.search.FindLicenseFiles(ctx, pkg.tree)
	if err != nil {
		return res, NewRowError(row, "search", err)
	}
	if len(paths) == 0 {
		h.log.Info("No license file found!", slog.Int("row", row))
		res.Status = models.StatusNoLicense
		return res, nil
	}
	h.log.Info("License path", slog.Int("row", row), slog.Any("paths", paths))

	text, err := h.search.Grep(ctx, paths)
	if err != nil {
		return res, NewRowError(row, "search", err)
	}
	if text == "" {
		h.log.Info("No copyright line found!", slog.Int("row", row))
		res.Status = models.StatusNoCopyright
		return res, nil
	}
	h.log.Debug("copyright", slog.Int("row", row), slog.String("text", text))

	if err := h.sheet.SetCell(row, h.cfg.CopyrightColumn, text); err != nil {
		return res, NewRowError(row, "write", err)
	}
	res.Status = models.StatusWritten
	res.Update = &models.CellUpdate{Row: row, Col: h.cfg.CopyrightColumn, Value: text}
	return res, nil
}

// packageFiles is the on-disk footprint of one row: the downloaded archive and
// its extracted tree.
type packageFiles struct {
	archive string
	tree    string
	keep    bool
	log     *slog.Logger
}

// fetchPackage downloads and extracts rawURL. On failure everything written so
// far has already been released.
func (h *harvester) fetchPackage(ctx context.Context, row int, rawURL string) (*packageFiles, error) {
	filename := fetch.Filename(rawURL)
	folder := archive.FolderName(filename)
	if filename == "" || folder == "" {
		return nil, NewRowError(row, "download", fmt.Errorf("%w: %s", ErrNoFilename, rawURL))
	}

	pkg := &packageFiles{
		archive: filepath.Join(h.cfg.PackagesDir, filename),
		tree:    filepath.Join(h.cfg.ExtractDir, folder),
		keep:    h.cfg.KeepArtifacts,
		log:     h.log,
	}
	// release removes both paths, so they must stay strictly inside their roots
	if !within(h.cfg.PackagesDir, pkg.archive) || !within(h.cfg.ExtractDir, pkg.tree) {
		return nil, NewRowError(row, "download", fmt.Errorf("%w: %s", ErrNoFilename, rawURL))
	}

	n, err := h.download.Download(ctx, rawURL, pkg.archive)
	if err != nil {
		pkg.release()
		return nil, NewRowError(row, "download", err)
	}
	h.log.Debug("downloaded", slog.String("file", pkg.archive), slog.Int64("bytes", n))

	// versions of one package share a folder name
	if err := os.RemoveAll(pkg.tree); err != nil {
		pkg.release()
		return nil, NewRowError(row, "extract", err)
	}

	format, err := archive.Extract(pkg.archive, pkg.tree)
	if err != nil {
		pkg.release()
		return nil, NewRowError(row, "extract", err)
	}
	h.log.Debug("extracted", slog.String("dir", pkg.tree), slog.String("format", string(format)))

	return pkg, nil
}

// within reports whether path lies strictly below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

func (p *packageFiles) release() {
	if p.keep {
		return
	}
	if err := os.Remove(p.archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn("remove archive", slog.String("file", p.archive), slog.Any("error", err))
	}
	if err := os.RemoveAll(p.tree); err != nil {
		p.log.Warn("remove extracted tree", slog.String("dir", p.tree), slog.Any("error", err))
	}
}
