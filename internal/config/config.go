package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Sreport  SreportConfig `mapstructure:"sreport"`
	Workers  int           `mapstructure:"workers" validate:"gte=1,lte=64"`
	Database string        `mapstructure:"database"`
	History  bool          `mapstructure:"history"`
	LogLevel string        `mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

// SreportConfig controls how the accounting report is run and read
type SreportConfig struct {
	Command     string `mapstructure:"command" validate:"required"`
	Cluster     string `mapstructure:"cluster"`
	HeaderLines int    `mapstructure:"header_lines" validate:"gte=0"`
	Column      int    `mapstructure:"column" validate:"gte=0"`
	ColumnName  string `mapstructure:"column_name"`
}

const envPrefix = "SU_USAGE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("sreport.command", "sreport")
	v.SetDefault("sreport.cluster", "")
	v.SetDefault("sreport.header_lines", 4)
	v.SetDefault("sreport.column", 5)
	v.SetDefault("sreport.column_name", "Used")
	v.SetDefault("workers", 1)
	v.SetDefault("database", "")
	v.SetDefault("history", false)
	v.SetDefault("log_level", "warn")
}

// LoadConfig loads configuration from the specified path or default location.
// A missing file is not an error; defaults and SU_USAGE_* env vars apply.
func LoadConfig(configPath string) (*Config, error) {
	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.SetEnvPrefix(envPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	path := configPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, ".su-usage", "config.toml")
		}
	}

	if path != "" {
		viperInstance.SetConfigFile(path)
		if err := viperInstance.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges on the loaded configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config value for %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetDatabasePath returns the history database path, using default if not specified
func (c *Config) GetDatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	// Default: ~/.su-usage/history.db
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.su-usage/history.db"
	}
	return filepath.Join(homeDir, ".su-usage", "history.db")
}

// viper reports an explicitly set but absent file as a raw fs error
func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
