// Package config loads and validates lansweep configuration from YAML
// files, environment overrides, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ostrand/lansweep/internal/scan"
)

// Config represents the complete lansweep configuration
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`

	// API server configuration
	API APIConfig `yaml:"api" json:"api"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScanningConfig holds scan engine settings
type ScanningConfig struct {
	// Targets to scan when none are given explicitly. Plain IPv4
	// addresses or CIDR blocks; empty means autodetect local /24s.
	Targets []string `yaml:"targets" json:"targets"`

	// Path to a ports file (one port or a-b range per line)
	PortsFile string `yaml:"ports_file" json:"ports_file"`

	// Inline port spec, overrides the ports file when set
	Ports string `yaml:"ports" json:"ports"`

	// Ports excluded from every scan
	ExcludePorts []int `yaml:"exclude_ports" json:"exclude_ports"`

	// Maximum simultaneous connection attempts
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Per-attempt connect timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Quick mode: narrowed port set and tightened timeout
	Quick bool `yaml:"quick" json:"quick"`

	// Enable the Redis PING probe on port 6379
	ProbeRedis bool `yaml:"probe_redis" json:"probe_redis"`
}

// APIConfig holds API server settings
type APIConfig struct {
	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Per-request handling timeout
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// Directory of static UI assets, empty disables the UI
	StaticDir string `yaml:"static_dir" json:"static_dir"`

	// Expose Prometheus metrics on /metrics
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, or file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Targets:     nil,
			PortsFile:   "ports.txt",
			Concurrency: scan.DefaultConcurrency,
			Timeout:     scan.DefaultTimeout,
		},
		API: APIConfig{
			ListenAddr:     "127.0.0.1",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			StaticDir:      "static",
			EnableMetrics:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for
// anything the file omits. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Scanning.Concurrency < 0 || c.Scanning.Concurrency > scan.MaxConcurrency {
		return fmt.Errorf("scanning concurrency must be between 0 and %d", scan.MaxConcurrency)
	}
	if c.Scanning.Timeout < 0 {
		return fmt.Errorf("scanning timeout cannot be negative")
	}
	for _, p := range c.Scanning.ExcludePorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("excluded port %d out of range", p)
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535")
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("API request timeout must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetAPIAddress returns the full API listen address
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
