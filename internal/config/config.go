// Package config loads syndicate settings from a YAML file and SYNDICATE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/syndicate/internal/model"
)

// EnvPrefix prefixes environment overrides: worker.batch_size is read from
// SYNDICATE_WORKER_BATCH_SIZE.
const EnvPrefix = "SYNDICATE"

// QueueConfig holds the target URL of each queue.
type QueueConfig struct {
	PropagateURL string `mapstructure:"propagate_url" yaml:"propagate_url"`
	PollURL      string `mapstructure:"poll_url" yaml:"poll_url"`
}

// WorkerConfig tunes task draining.
type WorkerConfig struct {
	BatchSize   int           `mapstructure:"batch_size" yaml:"batch_size"`
	LockAhead   time.Duration `mapstructure:"lock_ahead" yaml:"lock_ahead"`
	PollEvery   time.Duration `mapstructure:"poll_every" yaml:"poll_every"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
}

// PollConfig controls how often sources are polled.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// ActivityConfig points at the HTTP activity backend.
type ActivityConfig struct {
	// BaseURL of the ActivityStreams API. Empty serves every source from
	// an empty in-memory backend.
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// TokenKey names the keyring entry holding the access token.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`

	// ShortNames limits the backend to sources with these short names.
	// Empty serves every source.
	ShortNames []string `mapstructure:"short_names" yaml:"short_names"`
}

// Config is the top-level application configuration.
type Config struct {
	Database string         `mapstructure:"database" yaml:"database"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Worker   WorkerConfig   `mapstructure:"worker" yaml:"worker"`
	Poll     PollConfig     `mapstructure:"poll" yaml:"poll"`
	Activity ActivityConfig `mapstructure:"activity" yaml:"activity"`
}

// DefaultPath returns ~/.config/syndicate/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "syndicate", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "syndicate.db")
	v.SetDefault("queue.propagate_url", model.DefaultPropagateURL)
	v.SetDefault("queue.poll_url", model.DefaultPollURL)
	v.SetDefault("worker.batch_size", 50)
	v.SetDefault("worker.lock_ahead", 30*time.Second)
	v.SetDefault("worker.poll_every", 2*time.Second)
	v.SetDefault("worker.max_attempts", 10)
	v.SetDefault("worker.backoff_base", 5*time.Second)
	v.SetDefault("worker.backoff_max", 10*time.Minute)
	v.SetDefault("poll.interval", 15*time.Minute)
	v.SetDefault("activity.base_url", "")
	v.SetDefault("activity.timeout", 30*time.Second)
	v.SetDefault("activity.token_key", "activity-token")
}

// Load reads configuration from the YAML file at path, then applies
// environment overrides. A missing file, or an empty path, yields defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the worker and store cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database must not be empty"))
	}
	if c.Queue.PropagateURL == "" || c.Queue.PollURL == "" {
		errs = append(errs, errors.New("queue urls must not be empty"))
	}
	if c.Worker.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must not be negative, got %d", c.Worker.BatchSize))
	}
	if c.Worker.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("worker.max_attempts must not be negative, got %d", c.Worker.MaxAttempts))
	}
	if c.Poll.Interval < 0 {
		errs = append(errs, fmt.Errorf("poll.interval must not be negative, got %s", c.Poll.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
