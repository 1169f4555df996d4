package contract

import (
	"testing"
	"time"

	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		LogLevel:     "info",
		Workers:      4,
		Timeout:      "30s",
		Output:       "text",
		Color:        "yes",
		CacheBackend: "none",
		CacheTTL:     "1h",
		StateFile:    "state.yaml",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: "workers must be greater than 0",
		},
		{
			name:        "too many workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = MaxWorkers + 1 },
			expectError: "cannot exceed",
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: "invalid output format",
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: "invalid --color value",
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "trace" },
			expectError: "invalid log level",
		},
		{
			name:        "bad timeout",
			mutate:      func(in *ConfigRawInput) { in.Timeout = "soon" },
			expectError: "invalid timeout",
		},
		{
			name:        "negative timeout",
			mutate:      func(in *ConfigRawInput) { in.Timeout = "-1s" },
			expectError: "timeout must be positive",
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "memcached" },
			expectError: "invalid cache backend",
		},
		{
			name:        "redis history is not allowed",
			mutate:      func(in *ConfigRawInput) { in.HistoryBackend = "redis"; in.HistoryDBConnect = "localhost:6379" },
			expectError: "invalid history backend",
		},
		{
			name:        "gitlab url without token",
			mutate:      func(in *ConfigRawInput) { in.GitLabURL = "https://gitlab.example.com" },
			expectError: "gitlab-token is required",
		},
		{
			name:        "gitlab url without scheme",
			mutate:      func(in *ConfigRawInput) { in.GitLabURL = "gitlab.example.com"; in.GitLabToken = "t" },
			expectError: "must start with http",
		},
		{
			name:        "unknown feature",
			mutate:      func(in *ConfigRawInput) { in.Features = map[string]bool{"auto_merge": true} },
			expectError: "unknown feature",
		},
		{
			name: "unknown project feature",
			mutate: func(in *ConfigRawInput) {
				in.ProjectFeatures = map[string]map[string]bool{"group/app": {"nope": false}}
			},
			expectError: "project group/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidate_PopulatesConfig(t *testing.T) {
	input := validInput()
	input.Output = "JSON"
	input.SkipApprovedCheck = true
	input.SkipDraftCheck = true
	input.GitLabURL = "https://gitlab.example.com/"
	input.GitLabToken = "secret"
	input.Features = map[string]bool{"security_orchestration_policies": false}
	input.ProjectFeatures = map[string]map[string]bool{
		"Group/App": {"security_orchestration_policies": true},
	}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.JSONOut, cfg.Output)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.Equal(t, "https://gitlab.example.com", cfg.GitLabURL)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, schema.SkipParams{SkipApprovedCheck: true, SkipDraftCheck: true}, cfg.Skip)

	assert.True(t, cfg.Features[schema.FeatureMergeRequestApprovers])
	assert.False(t, cfg.Features[schema.FeatureSecurityOrchestrationPolicies])
	assert.True(t, cfg.ProjectFeatures["group/app"][schema.FeatureSecurityOrchestrationPolicies])
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	input := validInput()
	input.Timeout = ""
	input.CacheTTL = ""
	input.CacheBackend = ""
	input.LogLevel = ""

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, schema.SQLiteBackend, cfg.CacheBackend)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.HistoryBackend)
}

func TestValidateBackendConfigs_SameSQLiteFile(t *testing.T) {
	input := validInput()
	input.CacheBackend = "sqlite"
	input.CacheDBConnect = "/tmp/shared.db"
	input.HistoryBackend = "sqlite"
	input.HistoryDBConnect = "/tmp/shared.db"

	err := ProcessAndValidate(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different SQLite database files")

	input.HistoryDBConnect = "/tmp/history.db"
	assert.NoError(t, ProcessAndValidate(&Config{}, input))
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none empty", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "root:pw@tcp(localhost:3306)/mergecheck", false},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"mysql missing tcp", schema.MySQLBackend, "root:pw@localhost/db", true},
		{"mysql missing db", schema.MySQLBackend, "root:pw@tcp(localhost:3306)", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=mergecheck", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=mergecheck", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"redis host port", schema.RedisBackend, "localhost:6379", false},
		{"redis url", schema.RedisBackend, "redis://localhost/0", false},
		{"redis empty", schema.RedisBackend, "", true},
		{"redis no port", schema.RedisBackend, "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
