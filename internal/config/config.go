package config

import (
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "THREADSTONE"
	DefaultLogLevel   = string(LogLevelWarning)
	DefaultWorkload   = string(workload.Dhrystone)
	DefaultSamples    = 5
	DefaultArchiveDB  = "threadstone.db"
	configName        = "threadstone"
	configType        = "toml"
	defaultDotEnvPath = ".env"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Workload   string `mapstructure:"workload"`
	Threads    int    `mapstructure:"threads"`
	Samples    int    `mapstructure:"samples"`
	Iterations uint64 `mapstructure:"iterations"`
	StreamSize int    `mapstructure:"stream_size"`
	SigningKey string `mapstructure:"signing_key"`
	PublicKey  string `mapstructure:"public_key"`
	Output     string `mapstructure:"output"`
	Archive    bool   `mapstructure:"archive"`
	ArchiveDB  string `mapstructure:"archive_db"`
	LogLevel   string `mapstructure:"log_level"`
	Debug      bool   `mapstructure:"debug"`
	Verbose    bool   `mapstructure:"verbose"`
}

// Load resolves configuration from, in increasing priority: defaults, the
// config file, the environment (after loading .env), and flags that were
// set explicitly. flags may be nil.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:  DefaultEnvPrefix,
		dotEnvPath: defaultDotEnvPath,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if err := loadDotEnv(o.dotEnvPath); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if cfg.Debug {
		cfg.LogLevel = string(LogLevelDebug)
	} else if cfg.Verbose && cfg.LogLevel == DefaultLogLevel {
		cfg.LogLevel = string(LogLevelInfo)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workload", DefaultWorkload)
	v.SetDefault("threads", 0)
	v.SetDefault("samples", DefaultSamples)
	v.SetDefault("iterations", 0)
	v.SetDefault("stream_size", workload.DefaultStreamSize)
	v.SetDefault("signing_key", "")
	v.SetDefault("public_key", "")
	v.SetDefault("output", "")
	v.SetDefault("archive", false)
	v.SetDefault("archive_db", DefaultArchiveDB)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// Validate checks value ranges. Sample and thread counts are rejected here,
// before any kernel runs.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel,
			fieldError{"log_level", c.LogLevel, "must be one of debug, info, warning, error"})
	}

	if c.Threads < 0 {
		return errFactory.WithData(errors.ErrInvalidThreads,
			fieldError{"threads", c.Threads, "must be 0 (all logical cores) or positive"})
	}

	if c.Samples < 1 {
		return errFactory.WithData(errors.ErrInvalidSamples,
			fieldError{"samples", c.Samples, "must be at least 1"})
	}

	if !workload.Known(workload.ID(c.Workload)) {
		return errFactory.WithData(errors.ErrUnknownWorkload,
			fieldError{"workload", c.Workload, "not a registered kernel"})
	}

	if c.StreamSize <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fieldError{"stream_size", c.StreamSize, "must be positive"})
	}

	if c.Archive && c.ArchiveDB == "" {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fieldError{"archive_db", c.ArchiveDB, "required when archive is enabled"})
	}

	return nil
}

// Signing reports whether a signing key is configured. An empty setting
// means results are written unsigned.
func (c *Config) Signing() bool {
	return c.SigningKey != ""
}

// KernelOptions returns the workload construction options.
func (c *Config) KernelOptions() workload.Options {
	return workload.Options{StreamSize: c.StreamSize}
}
