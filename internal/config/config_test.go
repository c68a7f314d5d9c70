package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/threadstone/internal/config"
	"codeberg.org/mutker/threadstone/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the host's config file and environment out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("THREADSTONE_CONFIG", "")
	return dir
}

func TestLoad(t *testing.T) {
	tempDir := isolate(t)

	configContent := []byte(`
workload = "stream"
threads = 4
samples = 12
iterations = 30
stream_size = 65536
signing_key = "/keys/threadstone.key"
archive = true
archive_db = "/var/lib/threadstone/runs.db"
log_level = "info"
`)
	configPath := filepath.Join(tempDir, "threadstone.toml")
	require.NoError(t, os.WriteFile(configPath, configContent, 0o600))

	t.Setenv("THREADSTONE_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "stream", cfg.Workload)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 12, cfg.Samples)
	assert.Equal(t, uint64(30), cfg.Iterations)
	assert.Equal(t, 65536, cfg.StreamSize)
	assert.Equal(t, "/keys/threadstone.key", cfg.SigningKey)
	assert.True(t, cfg.Signing())
	assert.True(t, cfg.Archive)
	assert.Equal(t, "/var/lib/threadstone/runs.db", cfg.ArchiveDB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 65536, cfg.KernelOptions().StreamSize)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultWorkload, cfg.Workload)
	assert.Equal(t, 0, cfg.Threads, "0 means all logical cores")
	assert.Equal(t, config.DefaultSamples, cfg.Samples)
	assert.Equal(t, uint64(0), cfg.Iterations, "0 means the kernel's default budget")
	assert.False(t, cfg.Signing(), "no key configured means unsigned")
	assert.False(t, cfg.Archive)
	assert.Equal(t, config.DefaultArchiveDB, cfg.ArchiveDB)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	tempDir := isolate(t)

	configPath := filepath.Join(tempDir, "threadstone.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("This is not a valid TOML file\n"), 0o600))

	_, err := config.Load(nil, config.WithConfigFile(configPath))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	tempDir := isolate(t)

	_, err := config.Load(nil, config.WithConfigFile(filepath.Join(tempDir, "missing.toml")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	tempDir := isolate(t)

	configPath := filepath.Join(tempDir, "threadstone.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("samples = 3\n"), 0o600))
	t.Setenv("THREADSTONE_CONFIG", configPath)
	t.Setenv("THREADSTONE_SAMPLES", "9")
	t.Setenv("THREADSTONE_SIGNING_KEY", "/run/secrets/threadstone.key")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Samples)
	assert.Equal(t, "/run/secrets/threadstone.key", cfg.SigningKey)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("THREADSTONE_SAMPLES", "9")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("samples", config.DefaultSamples, "")
	flags.Int("threads", 0, "")
	flags.String("signing-key", "", "")
	require.NoError(t, flags.Parse([]string{"--samples=7", "--signing-key=/tmp/k"}))

	cfg, err := config.Load(flags)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Samples, "explicit flag wins over environment")
	assert.Equal(t, 0, cfg.Threads, "unset flag keeps default")
	assert.Equal(t, "/tmp/k", cfg.SigningKey)
}

func TestLoadDotEnv(t *testing.T) {
	tempDir := isolate(t)

	envPath := filepath.Join(tempDir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("THREADSTONE_STREAM_SIZE=4096\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("THREADSTONE_STREAM_SIZE") })

	cfg, err := config.Load(nil, config.WithDotEnv(envPath))
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.StreamSize)
}

func TestLoadDebugForcesDebugLevel(t *testing.T) {
	isolate(t)
	t.Setenv("THREADSTONE_DEBUG", "true")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, string(config.LogLevelDebug), cfg.LogLevel)
}

func TestLoadVerboseRaisesDefaultLevel(t *testing.T) {
	isolate(t)
	t.Setenv("THREADSTONE_VERBOSE", "true")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, string(config.LogLevelInfo), cfg.LogLevel)
}

func TestWithEnvPrefixRejectsEmpty(t *testing.T) {
	isolate(t)

	_, err := config.Load(nil, config.WithEnvPrefix(""))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Workload:   config.DefaultWorkload,
			Samples:    config.DefaultSamples,
			StreamSize: 1024,
			ArchiveDB:  config.DefaultArchiveDB,
			LogLevel:   config.DefaultLogLevel,
		}
	}

	tests := []struct {
		name   string
		modify func(*config.Config)
		code   errors.ErrorCode
	}{
		{"invalid log level", func(c *config.Config) { c.LogLevel = "invalid" }, errors.ErrInvalidLogLevel},
		{"negative threads", func(c *config.Config) { c.Threads = -1 }, errors.ErrInvalidThreads},
		{"zero samples", func(c *config.Config) { c.Samples = 0 }, errors.ErrInvalidSamples},
		{"unknown workload", func(c *config.Config) { c.Workload = "whetstone" }, errors.ErrUnknownWorkload},
		{"zero stream size", func(c *config.Config) { c.StreamSize = 0 }, errors.ErrInvalidConfig},
		{"archive without path", func(c *config.Config) { c.Archive = true; c.ArchiveDB = "" }, errors.ErrInvalidConfig},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))

			appErr, ok := err.(errors.Error)
			require.True(t, ok)
			fe, ok := appErr.GetData().(config.ValidationError)
			require.True(t, ok, "validation errors carry the offending field")
			assert.NotEmpty(t, fe.Field())
			assert.NotEmpty(t, fe.Reason())
		})
	}
}

func TestLogLevelIsValid(t *testing.T) {
	assert.True(t, config.LogLevelWarning.IsValid())
	assert.False(t, config.LogLevel("verbose").IsValid())
	assert.Equal(t, "error", config.LogLevelError.String())
}
