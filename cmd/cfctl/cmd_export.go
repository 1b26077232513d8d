package main

import (
	"fmt"
	"os"
	"path/filepath"

	"cfdiag-api/pkg/services"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	format string
	outDir string
	id     string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an Excel or PDF report",
	Long:  "Write a report for one result (--id) or for every stored result.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.format, "format", "excel", "Report format: excel or pdf")
	f.StringVarP(&exportFlags.outDir, "out", "o", ".", "Output directory")
	f.StringVar(&exportFlags.id, "id", "", "Result id (all results when empty)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := services.ParseReportFormat(exportFlags.format)
	if err != nil {
		return err
	}

	var report services.Report
	if exportFlags.id != "" {
		report, err = app.Reports.ResultReport(cmd.Context(), exportFlags.id, format)
	} else {
		report, err = app.Reports.AllReports(cmd.Context(), format)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(exportFlags.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(exportFlags.outDir, report.Filename)
	if err := os.WriteFile(path, report.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(report.Data))
	return nil
}
