package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/wardriver/internal/connectivity"
	"github.com/roman-kulish/wardriver/internal/ingest"
	"github.com/roman-kulish/wardriver/internal/upload"
)

const (
	defaultDataDirectory = "/root/wardriver"
	defaultDatabaseFile  = "wardriver.db"
	defaultHostName      = "wardriver"
	defaultDisplayType   = "unknown"
	defaultStatusListen  = "127.0.0.1:8080"

	// apiKeyEnv overrides wigle.apiKey when set.
	apiKeyEnv = "WIGLE_API_KEY"
)

// ErrConfigMissing marks a feature that was switched off because its
// configuration is incomplete. It is logged, never fatal.
var ErrConfigMissing = errors.New("configuration missing")

// Config represents the main application configuration
type Config struct {
	Settings     Settings           `yaml:"settings"`
	Storage      StorageConfig      `yaml:"storage"`
	Whitelist    []string           `yaml:"whitelist"` // Per-install list, merged with Host.Whitelist
	Host         HostConfig         `yaml:"host"`
	Scanner      ScannerConfig      `yaml:"scanner"`
	GPS          GPSConfig          `yaml:"gps"`
	Wigle        WigleConfig        `yaml:"wigle"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Status       StatusConfig       `yaml:"status"`
	UI           UIConfig           `yaml:"ui"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"` // Database and legacy files; created if missing
	DatabaseFile  string `yaml:"databaseFile"`
}

// HostConfig describes the device the logger runs on
type HostConfig struct {
	Name        string   `yaml:"name"`
	DisplayType string   `yaml:"displayType"`
	Whitelist   []string `yaml:"whitelist"`
}

// ScannerConfig selects where scan cycles come from. Without a command they
// are read from the run command's input.
type ScannerConfig struct {
	Command []string `yaml:"command"`
}

// GPSConfig represents positioning settings
type GPSConfig struct {
	Accuracy int `yaml:"accuracy"` // Accuracy radius in meters written with every observation
}

// WigleConfig represents upload settings
type WigleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	APIKey   string        `yaml:"apiKey"`
	EnvFile  string        `yaml:"envFile"` // Optional dotenv file providing WIGLE_API_KEY
	Donate   bool          `yaml:"donate"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ConnectivityConfig represents the network reachability probe
type ConnectivityConfig struct {
	ProbeAddress string        `yaml:"probeAddress"`
	Interval     time.Duration `yaml:"interval"`
}

// StatusConfig represents the status API
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// UIConfig is carried for the host display adapter
type UIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Position string `yaml:"position"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadConfig reads the YAML file at path, fills in defaults and resolves the
// upload API key. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return parseConfig(data, filepath.Dir(path))
}

func parseConfig(data []byte, baseDir string) (*Config, error) {
	var c Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	c.applyDefaults()

	if err := c.resolveAPIKey(baseDir); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.DataDirectory == "" {
		c.Storage.DataDirectory = defaultDataDirectory
	}
	if c.Storage.DatabaseFile == "" {
		c.Storage.DatabaseFile = defaultDatabaseFile
	}
	if c.Host.Name == "" {
		c.Host.Name = defaultHostName
	}
	if c.Host.DisplayType == "" {
		c.Host.DisplayType = defaultDisplayType
	}
	if c.GPS.Accuracy == 0 {
		c.GPS.Accuracy = ingest.DefaultAccuracy
	}
	if c.Wigle.Endpoint == "" {
		c.Wigle.Endpoint = upload.DefaultEndpoint
	}
	if c.Wigle.Timeout == 0 {
		c.Wigle.Timeout = upload.DefaultTimeout
	}
	if c.Connectivity.ProbeAddress == "" {
		c.Connectivity.ProbeAddress = connectivity.DefaultProbeAddress
	}
	if c.Connectivity.Interval == 0 {
		c.Connectivity.Interval = connectivity.DefaultInterval
	}
	if c.Status.Listen == "" {
		c.Status.Listen = defaultStatusListen
	}
}

// resolveAPIKey loads the env file, if any, and lets WIGLE_API_KEY override the file value.
func (c *Config) resolveAPIKey(baseDir string) error {
	if c.Wigle.EnvFile != "" {
		envFile := c.Wigle.EnvFile
		if !filepath.IsAbs(envFile) {
			envFile = filepath.Join(baseDir, envFile)
		}

		// existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	if key := os.Getenv(apiKeyEnv); key != "" {
		c.Wigle.APIKey = key
	}
	return nil
}

// Validate switches off features whose configuration is incomplete and
// reports each of them wrapped in ErrConfigMissing. Other settings are
// checked too; the returned error is meant to be logged.
func (c *Config) Validate() error {
	var errs []error

	if c.Wigle.Enabled && c.Wigle.APIKey == "" {
		c.Wigle.Enabled = false
		errs = append(errs, fmt.Errorf("%w: wigle.apiKey is required for uploads, uploading disabled", ErrConfigMissing))
	}

	if c.GPS.Accuracy < 0 {
		c.GPS.Accuracy = ingest.DefaultAccuracy
		errs = append(errs, fmt.Errorf("gps.accuracy must not be negative, using %d", ingest.DefaultAccuracy))
	}

	return errors.Join(errs...)
}

// DatabasePath returns the location of the database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDirectory, c.Storage.DatabaseFile)
}

// EffectiveWhitelist merges both whitelists, dropping duplicates and blanks.
func (c *Config) EffectiveWhitelist() []string {
	seen := make(map[string]struct{}, len(c.Whitelist)+len(c.Host.Whitelist))

	var names []string
	for _, list := range [][]string{c.Whitelist, c.Host.Whitelist} {
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
