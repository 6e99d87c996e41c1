// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values can be written as "5s", "30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Queue       QueueConfig       `toml:"queue"`
	MediaServer MediaServerConfig `toml:"mediaserver"`
	Import      ImportConfig      `toml:"import"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type QueueConfig struct {
	// StatePath is the queue snapshot file. Only the queue store touches it.
	StatePath string `toml:"state_path"`
}

type MediaServerConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type ImportConfig struct {
	MaxParallelMovieImports int      `toml:"max_parallel_movie_imports"`
	SeriesImportDelay       Duration `toml:"series_import_delay"`
	CatalogImportTimeout    Duration `toml:"catalog_import_timeout"`
	PollInterval            Duration `toml:"poll_interval"`
	HistoryRetention        Duration `toml:"history_retention"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8787
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/catarr.db"
	}
	if c.Queue.StatePath == "" {
		c.Queue.StatePath = "./data/import-queue.json"
	}
	if c.Import.MaxParallelMovieImports == 0 {
		c.Import.MaxParallelMovieImports = 4
	}
	if c.Import.SeriesImportDelay.Duration == 0 {
		c.Import.SeriesImportDelay.Duration = 5 * time.Second
	}
	if c.Import.PollInterval.Duration == 0 {
		c.Import.PollInterval.Duration = time.Minute
	}
	if c.Import.HistoryRetention.Duration == 0 {
		c.Import.HistoryRetention.Duration = 30 * 24 * time.Hour
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
