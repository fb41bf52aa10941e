package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/ack"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/config"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/db"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/edi"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/export"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pathutil"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pipeline"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/report"
)

var (
	ackDir        string
	exportPath    string
	csvDir        string
	processDryRun bool
)

// processCmd represents the process command.
var processCmd = &cobra.Command{
	Use:   "process <file.edi>...",
	Short: "Process local 810 documents and generate 997 acknowledgments",
	Long: `Process one or more X12 EDI 810 invoice documents from disk.

This command:
1. Parses each document into invoices
2. Generates a 997 functional acknowledgment per document
3. Writes the acknowledgment next to the input (or into --ack-dir)
4. Records processing history in SQLite
5. Optionally exports an Excel workbook or CSV files

Example:
  edi-gateway process invoices/sample_810.edi
  edi-gateway process a.edi b.edi --export invoices.xlsx
  edi-gateway process invoices/sample_810.edi --dry-run`,
	Args: cobra.MinimumNArgs(1),
	Run:  runProcess,
}

func init() {
	// Flags
	processCmd.Flags().StringVar(&ackDir, "ack-dir", "", "Directory for generated acknowledgments (default: next to input)")
	processCmd.Flags().StringVar(&exportPath, "export", "", "Write an Excel workbook with invoice summaries and line items")
	processCmd.Flags().StringVar(&csvDir, "csv", "", "Write summary and line item CSV files into this directory")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "Dry run mode (no file writes, no history)")
}

func runProcess(cmd *cobra.Command, args []string) {
	slog.Info("Starting local processing", "files", len(args), "dry_run", processDryRun)

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	settings, err := config.LoadSettings(getSettingsFile())
	exitOnError(err, "failed to load settings")

	// Initialize components
	pathResolver := pathutil.New(pathutil.Config{
		DataRoot:     cfg.Data.Root,
		DatabasePath: cfg.Data.DBPath,
	})

	// Open database (skipped in dry-run mode, nothing is recorded)
	var history *db.History
	if !processDryRun {
		dbPath := pathResolver.GetDatabasePath()
		slog.Debug("Opening database", "path", dbPath)
		conn, err := db.Open(dbPath)
		exitOnError(err, "failed to open database")
		defer conn.Close()

		history = db.NewHistory(conn)
	}

	generator := ack.NewGenerator(settings.AckConfig())
	processor := pipeline.NewProcessor(generator, history, pathResolver, settings.Folders)

	// Process each document
	var invoices []*edi.Invoice
	failures := 0
	for _, path := range args {
		result, err := processor.ProcessLocal(path, ackDir, processDryRun)
		if err != nil {
			slog.Error("Failed to process document", "file", path, "error", err)
			fmt.Fprintf(os.Stderr, "Error: failed to process %s: %v\n", path, err)
			failures++
			continue
		}

		fmt.Printf("Processed %s: %d invoice(s), ack %s\n", filepath.Base(path), len(result.Invoices), result.AckFile)
		for _, d := range result.Diagnostics {
			fmt.Printf("  warning: %s\n", d)
		}
		invoices = append(invoices, result.Invoices...)
	}

	// Export reports
	if len(invoices) > 0 && !processDryRun {
		summaries := report.Summarize(invoices)
		lines := report.LineItems(invoices)

		if exportPath != "" {
			exitOnError(export.WriteWorkbook(exportPath, summaries, lines), "failed to write workbook")
			fmt.Printf("Wrote workbook %s\n", exportPath)
		}
		if csvDir != "" {
			exitOnError(pathResolver.EnsureDir(csvDir), "failed to create CSV directory")
			exitOnError(export.WriteSummaryCSV(filepath.Join(csvDir, "invoices.csv"), summaries), "failed to write summary CSV")
			exitOnError(export.WriteLinesCSV(filepath.Join(csvDir, "line_items.csv"), lines), "failed to write line items CSV")
			fmt.Printf("Wrote CSV files to %s\n", csvDir)
		}
	}

	slog.Info("Processing completed", "processed", len(args)-failures, "failed", failures)

	if failures > 0 {
		os.Exit(1)
	}
}
