// Package config provides CLI configuration management for the recall command-line tool.
// It supports loading configuration from YAML files, a .env file, environment variables,
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultServerURL    = "http://localhost:8080"
	DefaultTimeout      = 2 * time.Minute
	DefaultOutputFormat = OutputFormatText
	DefaultPageSize     = 20
	MaxPageSize         = 100
	DefaultConfigDir    = ".recall"
	DefaultConfigFile   = "config.yaml"
	DefaultEnvFile      = ".env"
	DefaultMetricsJob   = "recall_cli"
)

// TLSConfig holds client TLS settings.
type TLSConfig struct {
	// CACert is the path to the CA certificate for verifying the server.
	CACert string `yaml:"ca_cert,omitempty"`

	// ClientCert is the path to the client certificate for mTLS authentication.
	ClientCert string `yaml:"client_cert,omitempty"`

	// ClientKey is the path to the client private key for mTLS authentication.
	ClientKey string `yaml:"client_key,omitempty"`

	// CertDir is a directory containing ca.crt, client.crt, and client.key files.
	// If set, it provides default paths for CACert, ClientCert, and ClientKey.
	CertDir string `yaml:"cert_dir,omitempty"`

	// SkipVerify disables server certificate verification (insecure, for testing only).
	SkipVerify bool `yaml:"skip_verify,omitempty"`
}

// ResolvePaths expands ~ in paths and sets defaults from CertDir if configured.
func (c *TLSConfig) ResolvePaths() {
	if c.CertDir != "" {
		c.CertDir = expandPath(c.CertDir)
		if c.CACert == "" {
			c.CACert = filepath.Join(c.CertDir, "ca.crt")
		}
		if c.ClientCert == "" {
			c.ClientCert = filepath.Join(c.CertDir, "client.crt")
		}
		if c.ClientKey == "" {
			c.ClientKey = filepath.Join(c.CertDir, "client.key")
		}
	} else {
		c.CACert = expandPath(c.CACert)
		c.ClientCert = expandPath(c.ClientCert)
		c.ClientKey = expandPath(c.ClientKey)
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// MetricsConfig controls pushing client metrics after a command finishes.
type MetricsConfig struct {
	// PushgatewayURL is the Prometheus Pushgateway address. Empty disables pushing.
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`

	// Job is the Pushgateway job label (default recall_cli).
	Job string `yaml:"job,omitempty"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool {
	return m.PushgatewayURL != ""
}

// JobName returns the configured job or the default.
func (m MetricsConfig) JobName() string {
	if m.Job == "" {
		return DefaultMetricsJob
	}
	return m.Job
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// ServerURL is the base URL of the Recall backend (scheme://host:port).
	ServerURL string `yaml:"server_url"`

	// Timeout bounds each command's requests. Uploads process synchronously on the
	// backend, so this is larger than a typical REST timeout.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// PageSize is the default page size for list commands.
	PageSize int `yaml:"page_size"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Insecure disables TLS verification (for development only).
	Insecure bool `yaml:"insecure,omitempty"`

	// TLS contains the TLS/mTLS configuration settings for https server URLs.
	TLS TLSConfig `yaml:"tls"`

	// Metrics contains the Pushgateway settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		ServerURL:    DefaultServerURL,
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		PageSize:     DefaultPageSize,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $RECALL_CONFIG_DIR if set, otherwise ~/.recall
func ConfigDir() (string, error) {
	if dir := os.Getenv("RECALL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.recall/config.yaml or $RECALL_CONFIG_DIR/config.yaml)
// 3. .env in the working directory (never overrides variables already set)
// 4. Environment variables (RECALL_SERVER_URL, RECALL_TIMEOUT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := LoadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// configFile is the on-disk shape; durations are stored as strings.
type configFile struct {
	ServerURL    string        `yaml:"server_url"`
	Timeout      string        `yaml:"timeout"`
	OutputFormat OutputFormat  `yaml:"output_format"`
	PageSize     int           `yaml:"page_size,omitempty"`
	Debug        bool          `yaml:"debug,omitempty"`
	Insecure     bool          `yaml:"insecure,omitempty"`
	TLS          TLSConfig     `yaml:"tls,omitempty"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ServerURL != "" {
		cfg.ServerURL = fileCfg.ServerURL
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.PageSize != 0 {
		cfg.PageSize = fileCfg.PageSize
	}
	cfg.Debug = fileCfg.Debug
	cfg.Insecure = fileCfg.Insecure
	cfg.TLS = fileCfg.TLS
	cfg.Metrics = fileCfg.Metrics

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("RECALL_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}

	if v := os.Getenv("RECALL_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}

	if v := os.Getenv("RECALL_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("RECALL_PAGE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = size
		}
	}

	if v := os.Getenv("RECALL_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("RECALL_INSECURE"); v == "true" || v == "1" {
		cfg.Insecure = true
	}

	if v := os.Getenv("RECALL_TLS_CA_CERT"); v != "" {
		cfg.TLS.CACert = v
	}

	if v := os.Getenv("RECALL_TLS_CLIENT_CERT"); v != "" {
		cfg.TLS.ClientCert = v
	}

	if v := os.Getenv("RECALL_TLS_CLIENT_KEY"); v != "" {
		cfg.TLS.ClientKey = v
	}

	if v := os.Getenv("RECALL_TLS_CERT_DIR"); v != "" {
		cfg.TLS.CertDir = v
	}

	if v := os.Getenv("RECALL_TLS_SKIP_VERIFY"); v == "true" || v == "1" {
		cfg.TLS.SkipVerify = true
	}

	if v := os.Getenv("RECALL_METRICS_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server_url: %q (must be an absolute http or https URL)", c.ServerURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("invalid page_size: %d (must be between 1 and %d)", c.PageSize, MaxPageSize)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// settableKeys maps `recall config set` keys to their setters.
var settableKeys = map[string]func(c *CLIConfig, value string) error{
	"server_url": func(c *CLIConfig, value string) error {
		c.ServerURL = strings.TrimRight(value, "/")
		return nil
	},
	"timeout": func(c *CLIConfig, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		c.Timeout = d
		return nil
	},
	"output_format": func(c *CLIConfig, value string) error {
		format := OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		c.OutputFormat = format
		return nil
	},
	"page_size": func(c *CLIConfig, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid page_size value: %w", err)
		}
		c.PageSize = n
		return nil
	},
	"debug": func(c *CLIConfig, value string) error {
		b, err := parseBool("debug", value)
		c.Debug = b
		return err
	},
	"insecure": func(c *CLIConfig, value string) error {
		b, err := parseBool("insecure", value)
		c.Insecure = b
		return err
	},
	"metrics.pushgateway_url": func(c *CLIConfig, value string) error {
		c.Metrics.PushgatewayURL = value
		return nil
	},
}

func parseBool(key, value string) (bool, error) {
	switch value {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value: %s (must be true or false)", key, value)
	}
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a single key and re-validates the configuration.
func (c *CLIConfig) Set(key, value string) error {
	setter, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err := setter(c, value); err != nil {
		return err
	}
	return c.Validate()
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	fileCfg := configFile{
		ServerURL:    cfg.ServerURL,
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		PageSize:     cfg.PageSize,
		Debug:        cfg.Debug,
		Insecure:     cfg.Insecure,
		TLS:          cfg.TLS,
		Metrics:      cfg.Metrics,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}
