// Package main provides the CLI entry point for copysheet.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ukaji3/copysheet-go/pkg/copysheet"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"
	"github.com/ukaji3/copysheet-go/pkg/copysheet/output"
)

var (
	verbose    bool
	logFormat  string
	reportPath string
	pretty     bool

	harvestCfg   = copysheet.DefaultHarvestConfig()
	reconcileCfg = copysheet.DefaultReconcileConfig()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "copysheet",
		Short: "Keep package copyright lines in Excel tracking sheets",
		Long: `copysheet fills copyright columns of open source tracking workbooks
by downloading each package archive and reading its license files, and
reconciles columns between tracking workbooks by package name.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "Write a JSON run report to this file")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Pretty-print the JSON report")

	rootCmd.AddCommand(newHarvestCommand())
	rootCmd.AddCommand(newReconcileCommand())

	return rootCmd
}

func newHarvestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Download packages listed in a workbook and record their copyright lines",
		Args:  cobra.NoArgs,
		RunE:  runHarvest,
	}

	flags := cmd.Flags()
	flags.StringVarP(&harvestCfg.Workbook, "workbook", "w", harvestCfg.Workbook, "Workbook listing package URLs")
	flags.StringVarP(&harvestCfg.Output, "output", "o", "", "Output workbook (default: overwrite --workbook)")
	flags.StringVar(&harvestCfg.PackagesDir, "packages-dir", harvestCfg.PackagesDir, "Directory for downloaded archives")
	flags.StringVar(&harvestCfg.ExtractDir, "extract-dir", harvestCfg.ExtractDir, "Directory for extracted packages")
	flags.IntVar(&harvestCfg.FirstRow, "first-row", harvestCfg.FirstRow, "First row to process (1-based)")
	flags.IntVar(&harvestCfg.URLColumn, "url-column", harvestCfg.URLColumn, "Column holding the package URL (1-based)")
	flags.IntVar(&harvestCfg.CopyrightColumn, "copyright-column", harvestCfg.CopyrightColumn, "Column receiving copyright lines (1-based)")
	flags.StringVar(&harvestCfg.Search, "search", harvestCfg.Search, "License search backend: exec, builtin")
	flags.StringVar(&harvestCfg.LicensePattern, "license-pattern", harvestCfg.LicensePattern, "Case-insensitive license file name pattern")
	flags.StringVar(&harvestCfg.CopyrightMarker, "copyright-marker", harvestCfg.CopyrightMarker, "Text marking copyright lines")
	flags.BoolVar(&harvestCfg.KeepArtifacts, "keep-artifacts", false, "Keep downloaded archives and extracted trees")
	flags.Float64Var(&harvestCfg.Rate, "rate", 0, "Maximum downloads per second (0: unlimited)")
	flags.DurationVar(&harvestCfg.Timeout, "timeout", 0, "Per-download timeout (0: none)")
	bindPersistence(flags, &harvestCfg.Persistence)

	return cmd
}

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Copy a column from a search workbook into an update workbook for each probe key",
		Args:  cobra.NoArgs,
		RunE:  runReconcile,
	}

	flags := cmd.Flags()
	flags.StringVar(&reconcileCfg.Probe, "probe", reconcileCfg.Probe, "Workbook listing the keys to reconcile")
	flags.StringVar(&reconcileCfg.Search, "search", reconcileCfg.Search, "Workbook holding the values to copy")
	flags.StringVar(&reconcileCfg.Update, "update", reconcileCfg.Update, "Workbook receiving the values")
	flags.StringVarP(&reconcileCfg.Output, "output", "o", "", "Output workbook (default: overwrite --update)")
	flags.IntVar(&reconcileCfg.ProbeKeyColumn, "probe-key-column", reconcileCfg.ProbeKeyColumn, "Probe key column (1-based)")
	flags.IntVar(&reconcileCfg.SearchKeyColumn, "search-key-column", reconcileCfg.SearchKeyColumn, "Search key column (1-based)")
	flags.IntVar(&reconcileCfg.SearchValueColumn, "search-value-column", reconcileCfg.SearchValueColumn, "Search value column (1-based)")
	flags.IntVar(&reconcileCfg.UpdateKeyColumn, "update-key-column", reconcileCfg.UpdateKeyColumn, "Update key column (1-based)")
	flags.IntVar(&reconcileCfg.UpdateValueColumn, "update-value-column", reconcileCfg.UpdateValueColumn, "Update value column (1-based)")
	bindPersistence(flags, &reconcileCfg.Persistence)

	return cmd
}

func bindPersistence(flags *pflag.FlagSet, p *copysheet.Persistence) {
	flags.StringVar(&p.JournalPath, "journal", p.JournalPath, "Progress journal for resuming interrupted runs (empty: disabled)")
	flags.IntVar(&p.SaveEvery, "save-every", p.SaveEvery, "Save the workbook every N rows (0: only at the end)")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch logFormat {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", logFormat)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func runHarvest(cmd *cobra.Command, args []string) error {
	// Validate input file exists
	if _, err := os.Stat(harvestCfg.Workbook); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", harvestCfg.Workbook)
	}

	report, err := copysheet.Harvest(cmd.Context(), harvestCfg)
	if werr := writeReport(report); werr != nil {
		slog.Error("write report", slog.Any("error", werr))
	}
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	for _, path := range []string{reconcileCfg.Probe, reconcileCfg.Search, reconcileCfg.Update} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}

	report, err := copysheet.Reconcile(cmd.Context(), reconcileCfg)
	if werr := writeReport(report); werr != nil {
		slog.Error("write report", slog.Any("error", werr))
	}
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	return nil
}

// writeReport writes report to --report, if set. Partial reports from failed
// runs are written too.
func writeReport(report *models.Report) error {
	if reportPath == "" || report == nil {
		return nil
	}

	jsonData, err := output.ToJSON(report, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if err := os.WriteFile(reportPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
