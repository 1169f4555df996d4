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

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("cache-backend")))
	connStr := viper.GetString("cache-db-connect")
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'", backend)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheDBFilePath is the SQLite file backing the cache.
func cacheDBFilePath() string {
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.CacheDBConnect != "" {
		return cfg.CacheDBConnect
	}
	return iocache.GetDBFilePath()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by evaluate. This avoids source validation
// for simple cache operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the check result cache",
	Long: `Manage the cache of check results keyed by merge request fingerprint.

Only checks that depend solely on fingerprinted merge request fields are cached.
A new commit, a retarget or a state change produces a new fingerprint, so stale
entries are never served; they simply age out after --cache-ttl.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None (memory only)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  mergecheck cache status

  # Clear a Redis cache
  MERGECHECK_CACHE_BACKEND=redis MERGECHECK_CACHE_DB_CONNECT=localhost:6379 mergecheck cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached check results",
	Long: `Delete all cached check results from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table
For Redis: Deletes the cache keys`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, cacheDBFilePath(), cfg.CacheDBConnect); err != nil {
			fatal("Failed to clear cache", err)
		}
		_, _ = fmt.Fprintln(stdout, "Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, connection state, entry count, newest and oldest entry
timestamps and storage size of the result cache.`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Initialize caching with the loaded config (no history for cache commands)
		if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, 0, "", ""); err != nil {
			fatal("Failed to initialize cache", err)
		}
		status, err := iocache.Manager.GetResultStore().GetStatus()
		if err != nil {
			fatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(stdout, status)
	},
}
