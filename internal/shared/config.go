package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Search      SearchConfig      `toml:"search"`
	Album       AlbumConfig       `toml:"album"`
	Media       MediaConfig       `toml:"media"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Twitter TwitterConfig `toml:"twitter"`
}

// TwitterConfig contains the application-only credentials for the search API.
type TwitterConfig struct {
	ConsumerKey    string `toml:"consumer_key"`
	ConsumerSecret string `toml:"consumer_secret"`
	ProxyURL       string `toml:"proxy_url"`
}

// SearchConfig contains search endpoint settings.
type SearchConfig struct {
	SearchURL string        `toml:"search_url"`
	TokenURL  string        `toml:"token_url"`
	RateLimit float64       `toml:"rate_limit"` // requests per second, 0 disables throttling
	Timeout   time.Duration `toml:"timeout"`
}

// AlbumConfig controls album size and media persistence.
type AlbumConfig struct {
	MaxItems     int  `toml:"max_items"`
	PersistMedia bool `toml:"persist_media"`
}

// MediaConfig contains settings for downloading and storing media payloads.
type MediaConfig struct {
	Dir       string  `toml:"dir"`
	BaseURL   string  `toml:"base_url"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
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

// ApplyEnv overrides credentials with TAGALBUM_CONSUMER_KEY and TAGALBUM_CONSUMER_SECRET when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TAGALBUM_CONSUMER_KEY"); v != "" {
		c.Credentials.Twitter.ConsumerKey = v
	}
	if v := os.Getenv("TAGALBUM_CONSUMER_SECRET"); v != "" {
		c.Credentials.Twitter.ConsumerSecret = v
	}
}

// Validate checks value ranges that would otherwise break the sync engine.
func (c *Config) Validate() error {
	if c.Album.MaxItems < 1 {
		return fmt.Errorf("%w: album.max_items must be at least 1, got %d", ErrInvalidConfig, c.Album.MaxItems)
	}
	if c.Media.Workers < 0 {
		return fmt.Errorf("%w: media.workers must not be negative, got %d", ErrInvalidConfig, c.Media.Workers)
	}
	if c.Search.RateLimit < 0 || c.Media.RateLimit < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	if c.Album.PersistMedia && c.Media.Dir == "" {
		return fmt.Errorf("%w: media.dir is required when album.persist_media is set", ErrInvalidConfig)
	}
	return nil
}
