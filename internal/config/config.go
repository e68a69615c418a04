// Package config loads server configuration from an optional TOML file,
// overridden by HBNB_* environment variables, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultStorageType = "file"
	defaultFilePath    = "file.json"
	defaultDBPath      = "hbnb.db"
	defaultAPIHost     = "0.0.0.0"
	defaultAPIPort     = 5000
	defaultLogLevel    = "info"
	defaultLogMaxSize  = 10
	defaultLogMaxFiles = 5
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	// Type selects the engine: "file" or "db".
	Type     string `toml:"type"`
	FilePath string `toml:"file_path"`
	DBPath   string `toml:"db_path"`
}

type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type LoadOptions struct {
	ConfigPath string
	// Env overrides the process environment in tests.
	Env map[string]string
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Type:     defaultStorageType,
			FilePath: defaultFilePath,
			DBPath:   defaultDBPath,
		},
		API: APIConfig{
			Host: defaultAPIHost,
			Port: defaultAPIPort,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSize,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	path := opts.ConfigPath
	if path == "" {
		if value, ok := lookupEnv(opts, "HBNB_CONFIG_PATH"); ok {
			path = value
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config file %q: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "HBNB_TYPE_STORAGE"); ok {
		cfg.Storage.Type = value
	}
	if value, ok := lookupEnv(opts, "HBNB_FILE_PATH"); ok {
		cfg.Storage.FilePath = value
	}
	if value, ok := lookupEnv(opts, "HBNB_DB_PATH"); ok {
		cfg.Storage.DBPath = value
	}
	if value, ok := lookupEnv(opts, "HBNB_API_HOST"); ok {
		cfg.API.Host = value
	}
	if value, ok := lookupEnv(opts, "HBNB_API_PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse HBNB_API_PORT: %v", ErrInvalidConfig, err)
		}
		cfg.API.Port = port
	}
	if value, ok := lookupEnv(opts, "HBNB_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "HBNB_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	return nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Type {
	case "file", "db":
	default:
		return fmt.Errorf("%w: storage.type must be \"file\" or \"db\", got %q", ErrInvalidConfig, cfg.Storage.Type)
	}
	if cfg.Storage.Type == "file" && cfg.Storage.FilePath == "" {
		return fmt.Errorf("%w: storage.file_path must not be empty", ErrInvalidConfig)
	}
	if cfg.Storage.Type == "db" && cfg.Storage.DBPath == "" {
		return fmt.Errorf("%w: storage.db_path must not be empty", ErrInvalidConfig)
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("%w: api.port must be in 1..65535", ErrInvalidConfig)
	}
	return nil
}

// Path returns the engine-appropriate storage path for the configured type.
func (c StorageConfig) Path() string {
	if c.Type == "db" {
		return c.DBPath
	}
	return c.FilePath
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		value, ok := opts.Env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}
