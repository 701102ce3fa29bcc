package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvVars = []string{
	"DASH_CONFIG_FILE",
	"DASH_SERVER_PORT", "DASH_SERVER_READ_TIMEOUT", "DASH_SERVER_WRITE_TIMEOUT",
	"DASH_LOGGING_LEVEL", "DASH_LOGGING_FORMAT", "DASH_LOGGING_OUTPUT",
	"DASH_CACHE_MAX_SIZE",
	"DASH_RETRY_MAX_RETRIES", "DASH_RETRY_BASE_DELAY", "DASH_RETRY_BACKOFF_FACTOR",
	"DASH_RETRY_USE_EXPONENTIAL_BACKOFF",
	"DASH_STORE_DRIVER", "DASH_STORE_PATH", "DASH_STORE_DATA_DIR",
	"DASH_SECURITY_RATE_LIMIT_RPS",
}

// isolateEnv clears the DASH_* variables for the duration of a test
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range testEnvVars {
		if val, ok := os.LookupEnv(envVar); ok {
			t.Cleanup(func() { os.Setenv(envVar, val) })
		} else {
			t.Cleanup(func() { os.Unsetenv(envVar) })
		}
		os.Unsetenv(envVar)
	}
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)

				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, 50, cfg.Security.RateLimit.Burst)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, 10, cfg.Cache.MaxSize)

				assert.Equal(t, 3, cfg.Retry.MaxRetries)
				assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
				assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
				assert.True(t, cfg.Retry.UseExponentialBackoff)
				assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
				assert.False(t, cfg.Retry.DelayOnFailure)

				assert.Equal(t, "memory", cfg.Store.Driver)
				assert.Equal(t, "data", cfg.Store.DataDir)
			},
		},
		{
			name: "custom environment variables",
			env: map[string]string{
				"DASH_SERVER_PORT":                   "9090",
				"DASH_SERVER_READ_TIMEOUT":           "30s",
				"DASH_LOGGING_LEVEL":                 "debug",
				"DASH_LOGGING_FORMAT":                "text",
				"DASH_CACHE_MAX_SIZE":                "25",
				"DASH_RETRY_MAX_RETRIES":             "5",
				"DASH_RETRY_BASE_DELAY":              "250ms",
				"DASH_RETRY_USE_EXPONENTIAL_BACKOFF": "false",
				"DASH_STORE_DRIVER":                  "SQLite",
				"DASH_STORE_PATH":                    "/tmp/retry.db",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format) // validate() forces json
				assert.Equal(t, 25, cfg.Cache.MaxSize)
				assert.Equal(t, 5, cfg.Retry.MaxRetries)
				assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
				assert.False(t, cfg.Retry.UseExponentialBackoff)
				assert.Equal(t, "sqlite", cfg.Store.Driver)
				assert.Equal(t, "/tmp/retry.db", cfg.Store.Path)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"DASH_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "zero port number",
			env:     map[string]string{"DASH_SERVER_PORT": "0"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"DASH_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: true,
		},
		{
			name:    "zero cache size",
			env:     map[string]string{"DASH_CACHE_MAX_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "unknown store driver",
			env:     map[string]string{"DASH_STORE_DRIVER": "badger"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"DASH_RETRY_BASE_DELAY": "soon"},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			env: map[string]string{
				"DASH_SERVER_PORT":   "7070",
				"DASH_LOGGING_LEVEL": "warn",
			},
			fileContent: `
server:
  port: 6060
  read_timeout: 20s
logging:
  level: error
cache:
  max_size: 4
retry:
  max_retries: 6
  delay_on_failure: true
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)                   // from env
				assert.Equal(t, "warn", cfg.Logging.Level)               // from env
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout) // from file
				assert.Equal(t, 4, cfg.Cache.MaxSize)                    // from file
				assert.Equal(t, 6, cfg.Retry.MaxRetries)                 // from file
				assert.True(t, cfg.Retry.DelayOnFailure)                 // from file
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout) // default
			},
		},
		{
			name:        "malformed config file",
			fileContent: "server: [not a map",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)

			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			if tt.fileContent != "" {
				configFile := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))
				os.Setenv("DASH_CONFIG_FILE", configFile)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("all sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: 9000
security:
  rate_limit:
    rps: 5
    burst: 2
store:
  driver: sqlite
  path: retry.db
  data_dir: /srv/datasets
telemetry:
  service_name: dash-test
  tracing_enabled: true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := loadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 5.0, cfg.Security.RateLimit.RPS)
		assert.Equal(t, 2, cfg.Security.RateLimit.Burst)
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.Equal(t, "retry.db", cfg.Store.Path)
		assert.Equal(t, "/srv/datasets", cfg.Store.DataDir)
		assert.Equal(t, "dash-test", cfg.Telemetry.ServiceName)
		assert.True(t, cfg.Telemetry.TracingEnabled)
	})
}

func TestMergeConfigs(t *testing.T) {
	env := *Default()
	file := Config{}
	file.Server.Port = 6000
	file.Cache.MaxSize = 3

	merged := mergeConfigs(file, env)
	assert.Equal(t, 6000, merged.Server.Port, "file value replaces untouched default")
	assert.Equal(t, 3, merged.Cache.MaxSize)
	assert.Equal(t, env.Server.ReadTimeout, merged.Server.ReadTimeout, "zero file value keeps env")

	env.Server.Port = 7000
	merged = mergeConfigs(file, env)
	assert.Equal(t, 7000, merged.Server.Port, "explicit env value wins")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{name: "defaults are valid"},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Retry.MaxRetries = -1 },
			wantErr: "max retries",
		},
		{
			name:    "backoff below one",
			mutate:  func(c *Config) { c.Retry.BackoffFactor = 0.5 },
			wantErr: "backoff factor",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Driver = "sqlite"; c.Store.Path = "" },
			wantErr: "store path",
		},
		{
			name:   "unknown log output falls back to console",
			mutate: func(c *Config) { c.Logging.Output = "syslog" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "console", c.Logging.Output)
			},
		},
		{
			name:   "empty log file path restored",
			mutate: func(c *Config) { c.Logging.FilePath = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "logs/dashboard.log", c.Logging.FilePath)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestGetConfigFilePath(t *testing.T) {
	isolateEnv(t)

	os.Setenv("DASH_CONFIG_FILE", "/etc/dash/config.yaml")
	assert.Equal(t, "/etc/dash/config.yaml", getConfigFilePath())

	os.Unsetenv("DASH_CONFIG_FILE")
	dir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(originalDir) })

	assert.Equal(t, "", getConfigFilePath())

	require.NoError(t, os.WriteFile("config.yaml", []byte("server:\n  port: 8081\n"), 0644))
	assert.Equal(t, "config.yaml", getConfigFilePath())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.validate())
	assert.Equal(t, 10, cfg.Cache.MaxSize)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "dashcli", cfg.Telemetry.ServiceName)
}
