package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/unfold/internal/domain"
)

const (
	configName = "unfold"
	envPrefix  = "UNFOLD"
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{"."}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "unfold"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "unfold"))
	}

	return paths
}

// DefaultDataDir returns where history and locks live by default
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "unfold")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".unfold")
	}
	return ".unfold"
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dest_dir", "~/Downloads")
	v.SetDefault("separator", "_")
	v.SetDefault("flatten", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("file_types", []string{})
	v.SetDefault("delete_after_download", false)
	v.SetDefault("interactive", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("rclone_binary", "rclone")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("history", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration into v and decodes it.
// If path is empty, the default locations are searched for unfold.yaml and a
// missing file is not an error. An explicit path that doesn't exist returns
// domain.ErrConfigNotFound.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		// Use specific file
		v.SetConfigFile(ExpandPath(path))
	} else {
		// Search default paths
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// optional file
		case path != "" && errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.DestDir = ExpandPath(cfg.DestDir)
	cfg.DataDir = ExpandPath(cfg.DataDir)
	if cfg.Log.File != "" {
		cfg.Log.File = ExpandPath(cfg.Log.File)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
