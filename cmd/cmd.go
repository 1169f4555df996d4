// Package cmd defines the command-line interface for mergecheck.
package cmd

import (
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of merge requests evaluated concurrently")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultTimeout.String(), "Deadline for the whole evaluation run")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Result cache backend: sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for the cache backend (e.g., user:pass@tcp(host:port)/dbname or host:6379)")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "Maximum age of persisted check results")
	rootCmd.PersistentFlags().String("history-backend", "", "Evaluation history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Connection string for evaluation history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().Bool("skip-approved-check", false, "Skip the approval check")
	rootCmd.PersistentFlags().Bool("skip-security-policy-check", false, "Skip both security policy checks")
	rootCmd.PersistentFlags().Bool("skip-draft-check", false, "Skip the draft check")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of evaluateCmd to Viper
	evaluateCmd.Flags().String("gitlab-url", "", "GitLab base URL for live merge request and approval data")
	evaluateCmd.Flags().String("gitlab-token", "", "GitLab API token (prefer MERGECHECK_GITLAB_TOKEN)")
	evaluateCmd.Flags().Bool("gitlab-insecure", false, "Skip TLS verification for the GitLab API")
	evaluateCmd.Flags().String("state-file", "", "YAML file describing merge requests, approvals, violations and policies")
	if err := viper.BindPFlags(evaluateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding evaluate flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
