package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"hmmsynth/internal"
	"hmmsynth/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Model  ModelConfig
	Export ExportConfig
	Server ServerConfig
	Remote RemoteConfig
	Log    LogConfig
}

// ModelConfig selects the collection to generate. Zero values leave the
// settings of the model file in place.
type ModelConfig struct {
	File        string `env:"HMMSYNTH_MODEL_FILE"`
	Preset      string `env:"HMMSYNTH_PRESET"`
	SeqLen      int    `env:"SEQ_LEN"`
	DatasetSize int    `env:"DATASET_SIZE"`
	Seed        uint64 `env:"SEED"`
}

// ExportConfig holds batch export settings
type ExportConfig struct {
	Workers   int    `env:"WORKERS"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./out"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Token           string        `env:"HMMSYNTH_API_TOKEN"` // bearer token required on /api when set
}

// RemoteConfig points the CLI at a running item server
type RemoteConfig struct {
	URL     string        `env:"HMMSYNTH_REMOTE_URL"`
	Token   string        `env:"HMMSYNTH_REMOTE_TOKEN"`
	Timeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads .env (if present) and the process environment, then validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read .env")
	}
	return parse(env.Options{})
}

// LoadFrom reads configuration from an explicit environment, ignoring the
// process environment and any .env file.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	config := &Config{}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse env: %w", err))
	}
	if config.Export.Workers <= 0 {
		config.Export.Workers = runtime.NumCPU()
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Model.SeqLen < 0 || config.Model.SeqLen == 1 {
		return errors.ConfigInvalid(fmt.Sprintf("SEQ_LEN must be greater than 1, got %d", config.Model.SeqLen))
	}
	if config.Model.DatasetSize < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("DATASET_SIZE must be non-negative, got %d", config.Model.DatasetSize))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Remote.Timeout <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("REMOTE_TIMEOUT must be positive, got %v", config.Remote.Timeout))
	}
	if _, ok := internal.ParseLogLevel(config.Log.Level); !ok {
		return errors.ConfigInvalid(fmt.Sprintf("unknown LOG_LEVEL %q", config.Log.Level))
	}
	return nil
}

// Logger returns a logger at the configured level
func (c *Config) Logger() *internal.Logger {
	level, _ := internal.ParseLogLevel(c.Log.Level)
	return internal.NewLogger(level)
}
