package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "OVERLAYCFG"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty path searches the default locations.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{
		configPath: configPath,
		v:          v,
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()
	l.setDefaults(cfg)

	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		l.v.SetConfigName("overlaycfg")
		for _, dir := range l.defaultDirs() {
			l.v.AddConfigPath(dir)
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// A data dir override moves the dependent paths with it
	if dir := os.Getenv(EnvPrefix + "_DATA_DIR"); dir != "" {
		cfg.Storage.InstallDir = filepath.Join(dir, "install")
		cfg.Storage.DataDir = filepath.Join(dir, "data")
		cfg.Storage.DocumentsDir = filepath.Join(dir, "documents")
		cfg.Storage.SQLitePath = filepath.Join(dir, "documents.db")
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	// Validate final config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ConfigFile returns the file that was read, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// setDefaults registers every key so env overrides apply even without a file.
func (l *Loader) setDefaults(cfg *Config) {
	l.v.SetDefault("storage.backend", cfg.Storage.Backend)
	l.v.SetDefault("storage.install_dir", cfg.Storage.InstallDir)
	l.v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	l.v.SetDefault("storage.documents_dir", cfg.Storage.DocumentsDir)
	l.v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	l.v.SetDefault("storage.max_file_size", cfg.Storage.MaxFileSize)
	l.v.SetDefault("storage.keep_backup", cfg.Storage.KeepBackup)
	l.v.SetDefault("persistence.debounce_delay", cfg.Persistence.DebounceDelay)
	l.v.SetDefault("persistence.flush_on_close", cfg.Persistence.FlushOnClose)
	l.v.SetDefault("host.url", cfg.Host.URL)
	l.v.SetDefault("host.timeout", cfg.Host.Timeout)
	l.v.SetDefault("log.level", cfg.Log.Level)
	l.v.SetDefault("log.format", cfg.Log.Format)
	l.v.SetDefault("log.file", cfg.Log.File)
	l.v.SetDefault("log.color", cfg.Log.Color)
	l.v.SetDefault("log.timestamp", cfg.Log.Timestamp)
	l.v.SetDefault("dev.enabled", cfg.Dev.Enabled)
	l.v.SetDefault("dev.use_debug_blocklist", cfg.Dev.UseDebugBlocklist)
}

// defaultDirs returns default config file locations.
func (l *Loader) defaultDirs() []string {
	dirs := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(homeDir, ".config", "overlaycfg"),
			filepath.Join(homeDir, ".overlaycfg"),
		)
	}

	return dirs
}
