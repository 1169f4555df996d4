package contract

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/mergecheck/schema"
)

// Default values for configuration.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultCacheTTL = 24 * time.Hour
	MaxWorkers      = 256
	DefaultLogLevel = "info"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for evaluations.
// This struct remains the "final, validated" config.
type Config struct {
	LogLevel   string
	Workers    int
	Timeout    time.Duration
	Output     schema.OutputMode
	OutputFile string
	UseColors  bool

	Skip schema.SkipParams

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	GitLabURL      string
	GitLabToken    string // Please use env var as this is plaintext
	GitLabInsecure bool
	StateFile      string

	// Features maps a feature to its default state across all projects.
	Features map[schema.Feature]bool

	// ProjectFeatures overrides Features for individual projects (keys are lowercased).
	ProjectFeatures map[string]map[schema.Feature]bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	LogLevel         string `mapstructure:"log-level"`
	Workers          int    `mapstructure:"workers"`
	Timeout          string `mapstructure:"timeout"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from evaluateCmd.Flags() ---
	GitLabURL               string `mapstructure:"gitlab-url"`
	GitLabToken             string `mapstructure:"gitlab-token"`
	GitLabInsecure          bool   `mapstructure:"gitlab-insecure"`
	StateFile               string `mapstructure:"state-file"`
	SkipApprovedCheck       bool   `mapstructure:"skip-approved-check"`
	SkipSecurityPolicyCheck bool   `mapstructure:"skip-security-policy-check"`
	SkipDraftCheck          bool   `mapstructure:"skip-draft-check"`

	// --- Feature gate from config file ---
	Features        map[string]bool            `mapstructure:"features"`
	ProjectFeatures map[string]map[string]bool `mapstructure:"project-features"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	if err := processFeatures(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") && !strings.Contains(connStr, ":") {
			return fmt.Errorf("Redis connection string must be host:port or a redis:// URL")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Skip = schema.SkipParams{
		SkipApprovedCheck:       input.SkipApprovedCheck,
		SkipSecurityPolicyCheck: input.SkipSecurityPolicyCheck,
		SkipDraftCheck:          input.SkipDraftCheck,
	}

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Log level ---
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}

	// --- 2. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Timeout ---
	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", input.Timeout, err)
		}
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive (received %s)", input.Timeout)
		}
		cfg.Timeout = timeout
	}

	// --- 4. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json, csv", input.Output)
	}

	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache-ttl '%s': %w", input.CacheTTL, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("cache-ttl must be positive (received %s)", input.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidHistoryBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that cache and history use different SQLite files
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath && cacheDBPath != ":memory:" {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// processSources validates the merge request sources.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.StateFile = strings.TrimSpace(input.StateFile)
	cfg.GitLabURL = strings.TrimRight(strings.TrimSpace(input.GitLabURL), "/")
	cfg.GitLabToken = input.GitLabToken
	cfg.GitLabInsecure = input.GitLabInsecure

	if cfg.GitLabURL != "" {
		if !strings.HasPrefix(cfg.GitLabURL, "http://") && !strings.HasPrefix(cfg.GitLabURL, "https://") {
			return fmt.Errorf("gitlab-url must start with http:// or https:// (received %q)", input.GitLabURL)
		}
		if cfg.GitLabToken == "" {
			return fmt.Errorf("gitlab-token is required when gitlab-url is set. Prefer MERGECHECK_GITLAB_TOKEN")
		}
	}
	return nil
}

// processFeatures converts the raw feature maps, defaulting every known feature to enabled.
func processFeatures(cfg *Config, input *ConfigRawInput) error {
	cfg.Features = make(map[schema.Feature]bool, len(schema.ValidFeatures))
	for feature := range schema.ValidFeatures {
		cfg.Features[feature] = true
	}
	for name, enabled := range input.Features {
		feature, err := parseFeature(name)
		if err != nil {
			return err
		}
		cfg.Features[feature] = enabled
	}

	cfg.ProjectFeatures = make(map[string]map[schema.Feature]bool, len(input.ProjectFeatures))
	for project, overrides := range input.ProjectFeatures {
		projectMap := make(map[schema.Feature]bool, len(overrides))
		for name, enabled := range overrides {
			feature, err := parseFeature(name)
			if err != nil {
				return fmt.Errorf("project %s: %w", project, err)
			}
			projectMap[feature] = enabled
		}
		cfg.ProjectFeatures[strings.ToLower(project)] = projectMap
	}
	return nil
}

func parseFeature(name string) (schema.Feature, error) {
	feature := schema.Feature(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := schema.ValidFeatures[feature]; !ok {
		return "", fmt.Errorf("unknown feature '%s'. must be %s or %s", name,
			schema.FeatureMergeRequestApprovers, schema.FeatureSecurityOrchestrationPolicies)
	}
	return feature, nil
}
