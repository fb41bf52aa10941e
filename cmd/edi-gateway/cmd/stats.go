package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/config"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/db"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pathutil"
)

var recentCount int

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display processing statistics",
	Long: `Display statistics about processed documents.

Shows:
- Total number of successfully processed files
- Total number of failed files
- Total number of parsed invoices
- Last processing timestamp

Example:
  edi-gateway stats
  edi-gateway stats --recent 5`,
	Run: runStats,
}

func init() {
	// Flags
	statsCmd.Flags().IntVar(&recentCount, "recent", 0, "Also list the N most recent history records")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Validate required fields
	if err := cfg.Validate([]string{"data", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Initialize PathResolver
	pathResolver := pathutil.New(pathutil.Config{
		DataRoot:     cfg.Data.Root,
		DatabasePath: cfg.Data.DBPath,
	})

	// Open database connection
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	// Get processing history
	history := db.NewHistory(conn)

	// Get statistics
	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	// Display statistics
	fmt.Println("\n=== Processing Statistics ===")
	fmt.Printf("Total processed files: %d\n", stats.TotalProcessed)
	fmt.Printf("Total failed files:    %d\n", stats.TotalFailed)
	fmt.Printf("Total parsed invoices: %d\n", stats.TotalInvoices)

	if stats.LastProcessed.Valid {
		fmt.Printf("Last processed:        %s\n", stats.LastProcessed.String)
	} else {
		fmt.Printf("Last processed:        (never)\n")
	}

	lastFile, err := history.GetMetadata("last_processed")
	exitOnError(err, "failed to get metadata")
	if lastFile != "" {
		fmt.Printf("Last file:             %s\n", lastFile)
	}

	fmt.Println()

	if recentCount > 0 {
		records, err := history.ListRecent(recentCount)
		exitOnError(err, "failed to list recent records")

		fmt.Println("=== Recent Files ===")
		for _, rec := range records {
			fmt.Printf("%-9s  %-40s  %3d invoice(s)  %s\n",
				rec.Status, rec.FileName, rec.InvoiceCount, rec.ProcessedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	slog.Info("Statistics displayed successfully")
}
