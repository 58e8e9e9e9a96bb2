package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"

	// ProxyPath is the fixed same-origin path the client posts proxy envelopes to.
	ProxyPath = "/api/proxy"

	defaultPort         = 8080
	defaultTimeout      = 60 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Client    ClientConfig      `yaml:"client"`
	Log       LogConfig         `yaml:"log"`
	Endpoints map[string]string `yaml:"endpoints"`
}

// ServerConfig defines listener and proxy endpoint configuration.
type ServerConfig struct {
	Port  int         `yaml:"port"`
	Proxy ProxyConfig `yaml:"proxy"`
}

// ProxyConfig controls the same-origin forwarding endpoint.
type ProxyConfig struct {
	Enabled      bool     `yaml:"enabled"`
	AllowedHosts []string `yaml:"allowed_hosts"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// ClientConfig decides how grading calls reach vendors.
type ClientConfig struct {
	Environment  string        `yaml:"environment"`
	ProxyBaseURL string        `yaml:"proxy_base_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a development configuration that calls vendors directly.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: defaultPort,
			Proxy: ProxyConfig{
				Enabled:      true,
				MaxBodyBytes: defaultMaxBodyBytes,
			},
		},
		Client: ClientConfig{
			Environment: EnvDevelopment,
			Timeout:     defaultTimeout,
		},
		Log: LogConfig{
			Level:  zerolog.LevelInfoValue,
			Format: LogFormatJSON,
		},
	}
}

// Load reads YAML configuration from disk over the defaults and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.Proxy.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.proxy.max_body_bytes must be positive, got %d", c.Server.Proxy.MaxBodyBytes)
	}
	for _, host := range c.Server.Proxy.AllowedHosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("server.proxy.allowed_hosts must not contain empty entries")
		}
	}

	if err := c.Client.validate(); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("log.format %q must be one of %q or %q", c.Log.Format, LogFormatJSON, LogFormatConsole)
	}

	for key, endpoint := range c.Endpoints {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("endpoints: provider key must not be empty")
		}
		if !isHTTPURL(endpoint) {
			return fmt.Errorf("endpoints.%s must be an absolute http(s) url, got %q", key, endpoint)
		}
	}

	return nil
}

func (c ClientConfig) validate() error {
	switch c.Environment {
	case EnvDevelopment:
	case EnvProduction:
		if !isHTTPURL(c.ProxyBaseURL) {
			return fmt.Errorf("client.proxy_base_url must be an absolute http(s) url in %s, got %q", EnvProduction, c.ProxyBaseURL)
		}
	default:
		return fmt.Errorf("client.environment %q must be one of %q or %q", c.Environment, EnvDevelopment, EnvProduction)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Direct reports whether vendors are called without the proxy.
func (c ClientConfig) Direct() bool {
	return c.Environment == EnvDevelopment
}

// ProxyURL is the absolute proxy endpoint used outside development.
func (c ClientConfig) ProxyURL() string {
	return strings.TrimRight(c.ProxyBaseURL, "/") + ProxyPath
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
