package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Ning0612/unfold/internal/core/flatten"
	"github.com/Ning0612/unfold/internal/domain"
)

// Config holds every setting that is not a positional argument.
// Values come from defaults, the config file, UNFOLD_* env vars and flags,
// in increasing precedence.
type Config struct {
	// DestDir is the local destination directory
	DestDir string `mapstructure:"dest_dir"`

	// Separator joins directory segments when Flatten is set
	Separator string `mapstructure:"separator"`

	Flatten             bool     `mapstructure:"flatten"`
	DryRun              bool     `mapstructure:"dry_run"`
	FileTypes           []string `mapstructure:"file_types"`
	DeleteAfterDownload bool     `mapstructure:"delete_after_download"`
	Interactive         bool     `mapstructure:"interactive"`

	// Exclude holds doublestar globs matched against relative paths and names
	Exclude []string `mapstructure:"exclude"`

	// RcloneBinary is the rclone executable name or path
	RcloneBinary string `mapstructure:"rclone_binary"`

	// DataDir holds run history and lock files
	DataDir string `mapstructure:"data_dir"`

	// History enables recording runs in the history database
	History bool `mapstructure:"history"`

	Log LogConfig `mapstructure:"log"`

	// Remotes declares non-rclone remotes, keyed by name
	Remotes map[string]RemoteConfig `mapstructure:"remotes"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	// File enables a rotated log file in addition to stderr
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// RemoteConfig declares an S3 remote
type RemoteConfig struct {
	Type            domain.RemoteType `mapstructure:"type"`
	Bucket          string            `mapstructure:"bucket"`
	Region          string            `mapstructure:"region"`
	Endpoint        string            `mapstructure:"endpoint"`
	PathStyle       bool              `mapstructure:"path_style"`
	AccessKeyID     string            `mapstructure:"access_key_id"`
	SecretAccessKey string            `mapstructure:"secret_access_key"`
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "pretty"}
)

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DestDir) == "" {
		return fmt.Errorf("%w: dest_dir cannot be empty", domain.ErrConfigInvalid)
	}

	if c.Flatten {
		if err := flatten.ValidateSeparator(c.Separator); err != nil {
			return err
		}
	}

	if _, err := c.TypeFilter(); err != nil {
		return err
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: invalid exclude pattern %q", domain.ErrConfigInvalid, pattern)
		}
	}

	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%w: invalid log level %q (choose from %s)",
			domain.ErrConfigInvalid, c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("%w: invalid log format %q (choose from %s)",
			domain.ErrConfigInvalid, c.Log.Format, strings.Join(validLogFormats, ", "))
	}

	for name, r := range c.Remotes {
		if name == "" {
			return fmt.Errorf("%w: remote name cannot be empty", domain.ErrConfigInvalid)
		}
		if r.Type != domain.RemoteS3 {
			return fmt.Errorf("%w: remote %s has unsupported type %q (only s3 remotes are declared here)",
				domain.ErrConfigInvalid, name, r.Type)
		}
		if r.Bucket == "" {
			return fmt.Errorf("%w: remote %s has no bucket", domain.ErrConfigInvalid, name)
		}
		if (r.AccessKeyID == "") != (r.SecretAccessKey == "") {
			return fmt.Errorf("%w: remote %s needs both access_key_id and secret_access_key",
				domain.ErrConfigInvalid, name)
		}
	}

	return nil
}

// TypeFilter parses FileTypes. Values may be comma separated.
func (c *Config) TypeFilter() (domain.TypeFilter, error) {
	var values []string
	for _, v := range c.FileTypes {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return domain.ParseTypeFilter(values)
}

// RemoteNames returns declared remote names, sorted
func (c *Config) RemoteNames() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetRemote returns a declared remote by name
func (c *Config) GetRemote(name string) (*RemoteConfig, error) {
	r, ok := c.Remotes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, name)
	}
	return &r, nil
}

// HistoryPath returns the run history database path
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// LockDir returns the directory holding per-source lock files
func (c *Config) LockDir() string {
	return filepath.Join(c.DataDir, "locks")
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
