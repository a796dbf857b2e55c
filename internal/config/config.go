// Package config loads the clozekit configuration from a YAML file and
// CLOZEKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the file.
const EnvPrefix = "CLOZEKIT"

// Config is the tool configuration.
type Config struct {
	// CollectionPath is a collection file, a profile directory or a glob.
	CollectionPath string `mapstructure:"collection_path"`
	// Adapter forces "anki" or "memory"; empty picks by file extension.
	Adapter   string `mapstructure:"adapter"`
	Backup    bool   `mapstructure:"backup"`
	BackupDir string `mapstructure:"backup_dir"`
	LogLevel  string `mapstructure:"log_level"`
	// Jobs is the job file used when --jobs is not given.
	Jobs string `mapstructure:"jobs"`

	// File is the configuration file read, if any.
	File string `mapstructure:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		CollectionPath: filepath.Join("~", ".local", "share", "Anki2", "User 1"),
		Backup:         true,
		LogLevel:       "info",
		Jobs:           "jobs.yaml",
	}
}

// Load reads the configuration. With an empty path "clozekit.yaml" is
// looked up in the working directory then the user configuration
// directory, and a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("collection_path", d.CollectionPath)
	v.SetDefault("adapter", d.Adapter)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("backup_dir", d.BackupDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("jobs", d.Jobs)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("clozekit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "clozekit"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
