package copysheet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/journal"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/sheet"
)

// progress tracks completed rows for one run: it journals each step, replays
// earlier steps on resume and checkpoints the workbook.
type progress struct {
	j         *journal.Journal
	run       string
	inputs    []string
	wb        *sheet.Workbook
	output    string
	saveEvery int
	pending   int
	done      map[int]bool
	log       *slog.Logger
}

// openProgress replays any journaled steps for routine/output into target and
// returns them as resumed results. Steps journaled against different input
// workbook contents are discarded.
func openProgress(ctx context.Context, p Persistence, routine string, inputs []string, wb *sheet.Workbook, target *sheet.Sheet, output string, log *slog.Logger) (*progress, []models.RowResult, error) {
	prog := &progress{
		inputs:    inputs,
		wb:        wb,
		output:    output,
		saveEvery: p.SaveEvery,
		done:      make(map[int]bool),
		log:       log,
	}
	if p.JournalPath == "" {
		return prog, nil, nil
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		return nil, nil, err
	}
	prog.run = routine + ":" + abs

	j, err := journal.Open(p.JournalPath)
	if err != nil {
		return nil, nil, err
	}
	prog.j = j

	if err := prog.checkInputs(ctx, p.JournalPath); err != nil {
		j.Close()
		return nil, nil, err
	}

	entries, err := j.Entries(ctx, prog.run)
	if err != nil {
		j.Close()
		return nil, nil, err
	}

	var resumed []models.RowResult
	for _, e := range entries {
		if e.Update != nil {
			if err := target.SetCell(e.Update.Row, e.Update.Col, e.Update.Value); err != nil {
				j.Close()
				return nil, nil, fmt.Errorf("replay step %d: %w", e.Step, err)
			}
		}
		prog.done[e.Step] = true
		resumed = append(resumed, models.RowResult{Step: e.Step, Status: models.StatusResumed, Update: e.Update})
	}

	if len(resumed) > 0 {
		log.Info("resuming from journal", slog.String("run", prog.run), slog.Int("steps", len(resumed)))
	}
	return prog, resumed, nil
}

// checkInputs clears the run when its inputs changed since the journal was
// written, then stores the current fingerprint. A run without a stored
// fingerprint keeps its steps.
func (p *progress) checkInputs(ctx context.Context, journalPath string) error {
	fp, err := fingerprint(p.inputs...)
	if err != nil {
		return err
	}
	stored, ok, err := p.j.Fingerprint(ctx, p.run)
	if err != nil {
		return err
	}
	if ok && stored != fp {
		p.log.Warn("inputs changed since last run, discarding journal",
			slog.String("journal", journalPath), slog.String("run", p.run))
		if err := p.j.Clear(ctx, p.run); err != nil {
			return err
		}
	}
	return p.j.SetFingerprint(ctx, p.run, fp)
}

// fingerprint hashes the contents of paths in order.
func fingerprint(paths ...string) (string, error) {
	h := sha256.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		n, err := io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		fmt.Fprintf(h, "\x00%d\x00", n)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Done reports whether step completed in an earlier run.
func (p *progress) Done(step int) bool {
	return p.done[step]
}

// Record journals a completed step and checkpoints the workbook when due.
func (p *progress) Record(ctx context.Context, res models.RowResult) error {
	if p.j != nil {
		if err := p.j.Append(ctx, p.run, journal.Entry{Step: res.Step, Status: res.Status, Update: res.Update}); err != nil {
			return err
		}
	}

	p.pending++
	if p.saveEvery > 0 && p.pending >= p.saveEvery {
		p.log.Debug("checkpoint", slog.String("output", p.output), slog.Int("step", res.Step))
		if err := p.wb.SaveAs(p.output); err != nil {
			return err
		}
		p.pending = 0
		// the checkpoint may have overwritten an input
		if p.j != nil {
			fp, err := fingerprint(p.inputs...)
			if err != nil {
				return err
			}
			if err := p.j.SetFingerprint(ctx, p.run, fp); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish saves the workbook and forgets the run's journal.
func (p *progress) Finish(ctx context.Context) error {
	if err := p.wb.SaveAs(p.output); err != nil {
		return err
	}
	if p.j != nil {
		return p.j.Clear(ctx, p.run)
	}
	return nil
}

// Close releases the journal.
func (p *progress) Close() error {
	if p.j != nil {
		return p.j.Close()
	}
	return nil
}
