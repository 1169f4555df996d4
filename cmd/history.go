package cmd

import (
	"fmt"
	"strings"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/iocache"
	"github.com/huangsam/mergecheck/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historySetup loads minimal configuration needed for history operations.
func historySetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Handle empty backend as NoneBackend
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("history-backend")))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidHistoryBackends[backend]; !ok {
		return fmt.Errorf("invalid history backend '%s'", backend)
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// openHistory initializes the history store only (no result cache).
func openHistory() {
	if err := iocache.InitStores("", "", 0, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		fatal("Failed to initialize history", err)
	}
}

// historyDBFilePath is the SQLite file backing the history.
func historyDBFilePath() string {
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect != "" {
		return cfg.HistoryDBConnect
	}
	return iocache.GetHistoryDBFilePath()
}

// historyCmd focused on evaluation history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded evaluations and exports",
	Long: `Manage the evaluation history used for auditing and reporting.

When --history-backend is set, every evaluation is recorded with its verdict,
reasons and per-check results in one transaction.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all recorded evaluations
  migrate - Run database schema migrations

Examples:
  # Check history status
  mergecheck history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  mergecheck history export --history-backend sqlite --output-file audit`,
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded evaluations",
	Long: `Delete all recorded evaluations and check results.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, historyDBFilePath(), cfg.HistoryDBConnect); err != nil {
			fatal("Failed to clear history", err)
		}
		_, _ = fmt.Fprintln(stdout, "Evaluation history cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display history statistics and connection details",
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		openHistory()
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			fatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(stdout, status)
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded evaluations to Parquet",
	Long: `Export all recorded evaluations to Parquet format.

Writes two files next to --output-file:
  <output-file>.evaluations.parquet    - one row per evaluation
  <output-file>.check_results.parquet  - one row per check result

Example:
  mergecheck history export --history-backend sqlite --output-file audit
  duckdb -c "SELECT verdict, count(*) FROM 'audit.evaluations.parquet' GROUP BY 1"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		openHistory()
		if err := iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), cfg.OutputFile, stdout); err != nil {
			fatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  mergecheck history migrate --history-backend postgresql --history-db-connect "host=... dbname=..."

  # Rollback everything
  mergecheck history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			fatal("Failed to run migrations", err)
		}
	},
}
