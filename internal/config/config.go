package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Document storage
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Debounced persistence
	Persistence PersistenceConfig `json:"persistence" mapstructure:"persistence"`

	// Native host bridge
	Host HostConfig `json:"host" mapstructure:"host"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`

	// Development options
	Dev DevConfig `json:"dev,omitempty" mapstructure:"dev"`
}

// StorageConfig selects the document backend and its locations.
type StorageConfig struct {
	Backend      string `json:"backend" mapstructure:"backend"`             // file, sqlite
	InstallDir   string `json:"install_dir" mapstructure:"install_dir"`     // Read-only presets and block lists
	DataDir      string `json:"data_dir" mapstructure:"data_dir"`           // Per-user overrides
	DocumentsDir string `json:"documents_dir" mapstructure:"documents_dir"` // Preferences and loadouts
	SQLitePath   string `json:"sqlite_path" mapstructure:"sqlite_path"`     // Used when backend is sqlite
	MaxFileSize  int64  `json:"max_file_size" mapstructure:"max_file_size"` // Max document size in bytes
	KeepBackup   bool   `json:"keep_backup" mapstructure:"keep_backup"`     // Keep <file>.backup on replace
}

// PersistenceConfig controls the write pipeline.
type PersistenceConfig struct {
	DebounceDelay time.Duration `json:"debounce_delay" mapstructure:"debounce_delay"`
	FlushOnClose  bool          `json:"flush_on_close" mapstructure:"flush_on_close"`
}

// HostConfig for the native host bridge.
type HostConfig struct {
	URL     string        `json:"url" mapstructure:"url"` // Empty disables the bridge
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level     string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format    string `json:"format" mapstructure:"format"` // text, json
	File      string `json:"file" mapstructure:"file"`     // Log file path (empty = stdout)
	Color     bool   `json:"color" mapstructure:"color"`
	Timestamp bool   `json:"timestamp" mapstructure:"timestamp"`
}

// DevConfig for development/debugging.
type DevConfig struct {
	Enabled           bool `json:"enabled" mapstructure:"enabled"`
	UseDebugBlocklist bool `json:"use_debug_blocklist" mapstructure:"use_debug_blocklist"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".overlaycfg"

	return &Config{
		Storage: StorageConfig{
			Backend:      "file",
			InstallDir:   filepath.Join(dataDir, "install"),
			DataDir:      filepath.Join(dataDir, "data"),
			DocumentsDir: filepath.Join(dataDir, "documents"),
			SQLitePath:   filepath.Join(dataDir, "documents.db"),
			MaxFileSize:  4 * 1024 * 1024,
			KeepBackup:   true,
		},
		Persistence: PersistenceConfig{
			DebounceDelay: 400 * time.Millisecond,
			FlushOnClose:  true,
		},
		Host: HostConfig{
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			Color:     true,
			Timestamp: true,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Backend == "file" && c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required")
	}

	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}

	if c.Persistence.DebounceDelay < 0 {
		return errors.New("persistence.debounce_delay must not be negative")
	}

	if c.Host.URL != "" && c.Host.Timeout <= 0 {
		return errors.New("host.timeout must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	var dirs []string

	switch c.Storage.Backend {
	case "sqlite":
		dirs = append(dirs, filepath.Dir(c.Storage.SQLitePath))
	default:
		dirs = append(dirs, c.Storage.InstallDir, c.Storage.DataDir, c.Storage.DocumentsDir)
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
