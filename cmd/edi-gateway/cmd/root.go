// Package cmd provides CLI commands for edi-gateway.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	settingsFile string
	debug        bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "edi-gateway",
	Short: "Process X12 EDI 810 invoices and generate 997 acknowledgments",
	Long: `edi-gateway is a CLI tool that parses X12 EDI 810 invoice documents,
generates 997 functional acknowledgments and exports invoice reports.

It supports:
- Parsing 810 documents with line items, allowances and taxes
- Generating 997 acknowledgments from the captured envelope
- Syncing documents from an SFTP trading partner folder
- Preventing duplicate processing with SQLite history
- Exporting summaries to Excel workbooks and CSV
- Dry-run mode for testing

Example:
  edi-gateway process invoices/sample_810.edi
  edi-gateway sync --limit 10
  edi-gateway stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default is config/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to get settings file path.
func getSettingsFile() string {
	if settingsFile != "" {
		return settingsFile
	}
	return filepath.Join("config", "settings.yaml")
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
