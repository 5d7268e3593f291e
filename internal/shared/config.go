package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Target    TargetConfig    `toml:"target"`
	Storage   StorageConfig   `toml:"storage"`
	Website   WebsiteConfig   `toml:"website"`
	Migration MigrationConfig `toml:"migration"`
	Speakers  SpeakersConfig  `toml:"speakers"`
}

// SourceConfig contains the legacy database connection settings.
type SourceConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// TargetConfig contains the new platform database connection settings.
type TargetConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// StorageConfig contains the object store connection settings.
type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// WebsiteConfig describes where the legacy site serves audio files from.
type WebsiteConfig struct {
	Domain           string `toml:"domain"`
	SundayAudioPath  string `toml:"sunday_audio_path"`
	SpecialAudioPath string `toml:"special_audio_path"`
}

// MigrationConfig tunes the pipeline itself.
type MigrationConfig struct {
	ProgressFile           string `toml:"progress_file"`
	BatchSize              int    `toml:"batch_size"`
	MaxRetries             int    `toml:"max_retries"`
	RetryDelaySeconds      int    `toml:"retry_delay_seconds"`
	DryRun                 bool   `toml:"dry_run"`
	DownloadTimeoutMinutes int    `toml:"download_timeout_minutes"`
	DownloadsPerSecond     int    `toml:"downloads_per_second"`
}

// SpeakersConfig points at the optional speaker name mapping table.
type SpeakersConfig struct {
	MappingsFile string `toml:"mappings_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every mandatory connection parameter is present.
// Missing parameters are a startup-time fatal error, never a runtime one.
func (c *Config) Validate() error {
	var missing []string

	if c.Source.DSN == "" || strings.Contains(c.Source.DSN, "<your-") {
		missing = append(missing, "source.dsn")
	}
	if c.Target.DSN == "" || strings.Contains(c.Target.DSN, "<your-") {
		missing = append(missing, "target.dsn")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "storage.endpoint")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "storage.bucket")
	}
	if c.Website.Domain == "" {
		missing = append(missing, "website.domain")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Settings converts the migration section into engine settings, filling
// zero values with the embedded defaults.
func (c *Config) Settings() MigrationConfig {
	defaults := DefaultConfig().Migration
	m := c.Migration
	if m.ProgressFile == "" {
		m.ProgressFile = defaults.ProgressFile
	}
	if m.BatchSize <= 0 {
		m.BatchSize = defaults.BatchSize
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = defaults.MaxRetries
	}
	if m.RetryDelaySeconds <= 0 {
		m.RetryDelaySeconds = defaults.RetryDelaySeconds
	}
	if m.DownloadTimeoutMinutes <= 0 {
		m.DownloadTimeoutMinutes = defaults.DownloadTimeoutMinutes
	}
	return m
}
