package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/ack"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/config"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/db"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/export"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pathutil"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pipeline"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/report"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/transfer"
)

var (
	syncLimit  int
	syncDryRun bool
	syncExport bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Process 810 documents from the SFTP incoming folder",
	Long: `Sync X12 EDI 810 documents from the trading partner's SFTP folder.

This command:
1. Lists documents in the incoming folder
2. Skips documents already processed successfully
3. Downloads and parses each document
4. Generates and uploads a 997 acknowledgment
5. Archives the source document to the processed folder
6. Records processing history in SQLite
7. Optionally writes an Excel workbook of the synced invoices

Example:
  edi-gateway sync
  edi-gateway sync --limit 10 --dry-run
  edi-gateway sync --export`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Maximum number of documents to process (0 = no limit)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Dry run mode (no remote changes, no history writes)")
	syncCmd.Flags().BoolVar(&syncExport, "export", false, "Write an Excel workbook into the configured export directory")
}

func runSync(cmd *cobra.Command, args []string) {
	slog.Info("Starting sync", "limit", syncLimit, "dry_run", syncDryRun)

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Validate required fields
	if err := cfg.Validate(
		[]string{"sftp", "host"},
		[]string{"sftp", "user"},
		[]string{"sftp", "password"},
		[]string{"data", "root"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	settings, err := config.LoadSettings(getSettingsFile())
	exitOnError(err, "failed to load settings")

	// Initialize components
	pathResolver := pathutil.New(pathutil.Config{
		DataRoot:     cfg.Data.Root,
		DatabasePath: cfg.Data.DBPath,
	})

	// Open database. Dry runs still read it for the duplicate check but
	// never write to it.
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewHistory(conn)

	// Connect to the trading partner
	slog.Info("Connecting to SFTP server", "host", cfg.SFTP.Host, "port", cfg.SFTP.Port)
	store, err := transfer.DialSFTP(transfer.SFTPConfig{
		Host:     cfg.SFTP.Host,
		Port:     cfg.SFTP.Port,
		User:     cfg.SFTP.User,
		Password: cfg.SFTP.Password,
		HomeDir:  cfg.SFTP.HomeDir,
		Timeout:  30 * time.Second,
	})
	exitOnError(err, "failed to connect to SFTP server")
	defer store.Close()

	generator := ack.NewGenerator(settings.AckConfig())
	processor := pipeline.NewProcessor(generator, history, pathResolver, settings.Folders)

	// Run the batch
	result, err := processor.Sync(store, syncLimit, syncDryRun)
	exitOnError(err, "sync failed")

	fmt.Printf("Processed %d document(s), skipped %d, failed %d\n",
		len(result.Processed), result.Skipped, len(result.Failed))
	for name, ferr := range result.Failed {
		fmt.Printf("  failed %s: %v\n", name, ferr)
	}

	// Export a workbook of this run's invoices
	if syncExport && !syncDryRun && len(result.Invoices) > 0 {
		exportDir := pathResolver.ResolveDir(settings.Export.Dir)
		exitOnError(pathResolver.EnsureDir(exportDir), "failed to create export directory")

		workbook := filepath.Join(exportDir, fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("20060102_150405")))
		summaries := report.Summarize(result.Invoices)
		lines := report.LineItems(result.Invoices)
		exitOnError(export.WriteWorkbook(workbook, summaries, lines), "failed to write workbook")
		fmt.Printf("Wrote workbook %s\n", workbook)
	}

	// Display final statistics
	if !syncDryRun {
		stats, err := history.GetStats()
		if err == nil {
			fmt.Println("\n=== Processing Statistics ===")
			fmt.Printf("Total processed files: %d\n", stats.TotalProcessed)
			fmt.Printf("Total failed files:    %d\n", stats.TotalFailed)
			fmt.Printf("Total parsed invoices: %d\n", stats.TotalInvoices)
			if stats.LastProcessed.Valid {
				fmt.Printf("Last processed:        %s\n", stats.LastProcessed.String)
			}
			fmt.Println()
		}
	}

	slog.Info("Sync completed",
		"processed", len(result.Processed),
		"skipped", result.Skipped,
		"failed", len(result.Failed),
	)
}
