package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog      CatalogConfig      `toml:"catalog"`
	Database     DatabaseConfig     `toml:"database"`
	Server       ServerConfig       `toml:"server"`
	Presentation PresentationConfig `toml:"presentation"`
	Logging      LoggingConfig      `toml:"logging"`
}

// CatalogConfig locates the song catalog and the documents it references.
type CatalogConfig struct {
	URL               string     `toml:"url"`
	DocumentBaseURL   string     `toml:"document_base_url"`
	DocumentsDir      string     `toml:"documents_dir"`
	RequestsPerSecond float64    `toml:"requests_per_second"`
	Burst             int        `toml:"burst"`
	TimeoutSeconds    int        `toml:"timeout_seconds"`
	Auth              AuthConfig `toml:"auth"`
}

// Timeout returns the per-request timeout, defaulting to 15 seconds.
func (c CatalogConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig contains optional OAuth2 client-credentials for the object store.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
}

// Enabled reports whether all client-credentials fields are set.
func (a AuthConfig) Enabled() bool {
	return a.ClientID != "" && a.ClientSecret != "" && a.TokenURL != ""
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

// Addr joins host and port into a listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PresentationConfig selects how presenter state reaches audience displays.
type PresentationConfig struct {
	Transport      string `toml:"transport"`
	Channel        string `toml:"channel"`
	StateDir       string `toml:"state_dir"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// PollInterval returns the storage polling interval, defaulting to 500ms.
func (p PresentationConfig) PollInterval() time.Duration {
	if p.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(p.PollIntervalMS) * time.Millisecond
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
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
