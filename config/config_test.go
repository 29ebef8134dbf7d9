package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearRecallEnv unsets every variable LoadConfig reads and points the config dir at a temp dir.
func clearRecallEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"RECALL_SERVER_URL",
		"RECALL_TIMEOUT",
		"RECALL_OUTPUT_FORMAT",
		"RECALL_PAGE_SIZE",
		"RECALL_DEBUG",
		"RECALL_INSECURE",
		"RECALL_TLS_CA_CERT",
		"RECALL_TLS_CLIENT_CERT",
		"RECALL_TLS_CLIENT_KEY",
		"RECALL_TLS_CERT_DIR",
		"RECALL_TLS_SKIP_VERIFY",
		"RECALL_METRICS_PUSHGATEWAY_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	dir := t.TempDir()
	t.Setenv("RECALL_CONFIG_DIR", dir)
	return dir
}

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %v, want %v", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.PageSize != 20 {
		t.Errorf("PageSize = %v, want 20", cfg.PageSize)
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
	if cfg.Insecure {
		t.Error("Insecure should be false by default")
	}
	if cfg.Metrics.Enabled() {
		t.Error("Metrics push should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestDefaultConstants verifies default constant values.
func TestDefaultConstants(t *testing.T) {
	if DefaultServerURL != "http://localhost:8080" {
		t.Errorf("DefaultServerURL = %v, want http://localhost:8080", DefaultServerURL)
	}
	if DefaultTimeout != 2*time.Minute {
		t.Errorf("DefaultTimeout = %v, want 2m", DefaultTimeout)
	}
	if DefaultConfigDir != ".recall" {
		t.Errorf("DefaultConfigDir = %v, want .recall", DefaultConfigDir)
	}
	if DefaultConfigFile != "config.yaml" {
		t.Errorf("DefaultConfigFile = %v, want config.yaml", DefaultConfigFile)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false},
		{"xml", false},
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestCLIConfig_Validate verifies configuration validation.
func TestCLIConfig_Validate(t *testing.T) {
	valid := func() *CLIConfig {
		return &CLIConfig{
			ServerURL:    "http://localhost:8080",
			Timeout:      30 * time.Second,
			OutputFormat: OutputFormatText,
			PageSize:     20,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *CLIConfig)
		errMsg string
	}{
		{"valid config", func(c *CLIConfig) {}, ""},
		{"https url", func(c *CLIConfig) { c.ServerURL = "https://recall.example.com" }, ""},
		{"empty server url", func(c *CLIConfig) { c.ServerURL = "" }, "server_url is required"},
		{"relative url", func(c *CLIConfig) { c.ServerURL = "localhost:8080" }, "invalid server_url"},
		{"ftp url", func(c *CLIConfig) { c.ServerURL = "ftp://host" }, "invalid server_url"},
		{"zero timeout", func(c *CLIConfig) { c.Timeout = 0 }, "timeout must be positive"},
		{"bad output format", func(c *CLIConfig) { c.OutputFormat = "xml" }, "invalid output_format"},
		{"zero page size", func(c *CLIConfig) { c.PageSize = 0 }, "invalid page_size"},
		{"page size too large", func(c *CLIConfig) { c.PageSize = 101 }, "invalid page_size"},
		{"max page size", func(c *CLIConfig) { c.PageSize = 100 }, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tc.errMsg)
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("Validate() error = %v, want substring %q", err, tc.errMsg)
			}
		})
	}
}

// TestConfigDir verifies config directory path resolution.
func TestConfigDir(t *testing.T) {
	t.Run("with env var", func(t *testing.T) {
		customDir := "/tmp/test-recall-config"
		t.Setenv("RECALL_CONFIG_DIR", customDir)

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if dir != customDir {
			t.Errorf("ConfigDir() = %v, want %v", dir, customDir)
		}
	})

	t.Run("default without env var", func(t *testing.T) {
		t.Setenv("RECALL_CONFIG_DIR", "")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultConfigDir)
		if dir != expected {
			t.Errorf("ConfigDir() = %v, want %v", dir, expected)
		}
	})
}

// TestLoadConfig_Defaults verifies default values when no config exists.
func TestLoadConfig_Defaults(t *testing.T) {
	clearRecallEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %v, want %v", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %v, want %v", cfg.PageSize, DefaultPageSize)
	}
}

// TestLoadConfig_WithEnvOverrides verifies environment variable overrides.
func TestLoadConfig_WithEnvOverrides(t *testing.T) {
	clearRecallEnv(t)

	t.Setenv("RECALL_SERVER_URL", "https://recall.internal:8443")
	t.Setenv("RECALL_TIMEOUT", "45s")
	t.Setenv("RECALL_OUTPUT_FORMAT", "json")
	t.Setenv("RECALL_PAGE_SIZE", "50")
	t.Setenv("RECALL_DEBUG", "true")
	t.Setenv("RECALL_INSECURE", "1")
	t.Setenv("RECALL_METRICS_PUSHGATEWAY_URL", "http://pushgateway:9091")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ServerURL != "https://recall.internal:8443" {
		t.Errorf("ServerURL = %v", cfg.ServerURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %v, want 50", cfg.PageSize)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if !cfg.Insecure {
		t.Error("Insecure should be true")
	}
	if cfg.Metrics.PushgatewayURL != "http://pushgateway:9091" {
		t.Errorf("PushgatewayURL = %v", cfg.Metrics.PushgatewayURL)
	}
}

// TestLoadConfig_FromFile verifies the YAML file is read and env wins over it.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := clearRecallEnv(t)

	content := `server_url: http://recall.lan:9000
timeout: 90s
output_format: yaml
page_size: 10
tls:
  ca_cert: /etc/recall/ca.crt
metrics:
  pushgateway_url: http://pg:9091
  job: nightly_upload
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("RECALL_PAGE_SIZE", "30")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ServerURL != "http://recall.lan:9000" {
		t.Errorf("ServerURL = %v", cfg.ServerURL)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if cfg.OutputFormat != OutputFormatYAML {
		t.Errorf("OutputFormat = %v, want yaml", cfg.OutputFormat)
	}
	if cfg.PageSize != 30 {
		t.Errorf("PageSize = %v, want env override 30", cfg.PageSize)
	}
	if cfg.TLS.CACert != "/etc/recall/ca.crt" {
		t.Errorf("TLS.CACert = %v", cfg.TLS.CACert)
	}
	if cfg.Metrics.JobName() != "nightly_upload" {
		t.Errorf("Metrics.JobName() = %v", cfg.Metrics.JobName())
	}
}

// TestLoadConfig_InvalidTimeout verifies a bad duration in the file is reported.
func TestLoadConfig_InvalidTimeout(t *testing.T) {
	dir := clearRecallEnv(t)

	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("timeout: soon\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() expected error for invalid timeout")
	}
	if !strings.Contains(err.Error(), "parsing timeout") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoadFromEnv_InvalidValuesIgnored verifies unparsable env values keep earlier settings.
func TestLoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	clearRecallEnv(t)
	t.Setenv("RECALL_TIMEOUT", "not-a-duration")
	t.Setenv("RECALL_PAGE_SIZE", "lots")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Timeout)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %v, want default", cfg.PageSize)
	}
}

// TestLoadEnvFile verifies .env values reach the environment without overriding.
func TestLoadEnvFile(t *testing.T) {
	clearRecallEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "RECALL_SERVER_URL=http://from-dotenv:8080\nRECALL_OUTPUT_FORMAT=json\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Setenv("RECALL_OUTPUT_FORMAT", "yaml")
	t.Cleanup(func() { os.Unsetenv("RECALL_SERVER_URL") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	if got := os.Getenv("RECALL_SERVER_URL"); got != "http://from-dotenv:8080" {
		t.Errorf("RECALL_SERVER_URL = %q", got)
	}
	if got := os.Getenv("RECALL_OUTPUT_FORMAT"); got != "yaml" {
		t.Errorf("RECALL_OUTPUT_FORMAT = %q, existing env should win", got)
	}
}

// TestLoadEnvFile_Missing verifies a missing .env is not an error.
func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvFile() error = %v, want nil", err)
	}
}

// TestSaveConfig verifies configuration round-trips through the file.
func TestSaveConfig(t *testing.T) {
	dir := clearRecallEnv(t)

	cfg := &CLIConfig{
		ServerURL:    "https://saved.server:8443",
		Timeout:      60 * time.Second,
		OutputFormat: OutputFormatYAML,
		PageSize:     25,
		Debug:        true,
		Metrics:      MetricsConfig{PushgatewayURL: "http://pg:9091"},
	}

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, DefaultConfigFile))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("ServerURL = %v, want %v", loaded.ServerURL, cfg.ServerURL)
	}
	if loaded.Timeout != cfg.Timeout {
		t.Errorf("Timeout = %v, want %v", loaded.Timeout, cfg.Timeout)
	}
	if loaded.PageSize != 25 {
		t.Errorf("PageSize = %v, want 25", loaded.PageSize)
	}
	if !loaded.Debug {
		t.Error("Debug should round-trip")
	}
	if loaded.Metrics.PushgatewayURL != "http://pg:9091" {
		t.Errorf("PushgatewayURL = %v", loaded.Metrics.PushgatewayURL)
	}
}

// TestSaveConfig_CreatesDirectory verifies a nested config dir is created.
func TestSaveConfig_CreatesDirectory(t *testing.T) {
	clearRecallEnv(t)
	nested := filepath.Join(t.TempDir(), "a", "b")
	t.Setenv("RECALL_CONFIG_DIR", nested)

	if err := SaveConfig(DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(nested, DefaultConfigFile)); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

// TestCLIConfig_Set verifies single-key updates used by `recall config set`.
func TestCLIConfig_Set(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(c *CLIConfig) bool
	}{
		{"server_url", "https://recall.example.com/", false, func(c *CLIConfig) bool { return c.ServerURL == "https://recall.example.com" }},
		{"server_url", "not a url", true, nil},
		{"timeout", "5m", false, func(c *CLIConfig) bool { return c.Timeout == 5*time.Minute }},
		{"timeout", "forever", true, nil},
		{"output_format", "json", false, func(c *CLIConfig) bool { return c.OutputFormat == OutputFormatJSON }},
		{"output_format", "csv", true, nil},
		{"page_size", "50", false, func(c *CLIConfig) bool { return c.PageSize == 50 }},
		{"page_size", "500", true, nil},
		{"debug", "true", false, func(c *CLIConfig) bool { return c.Debug }},
		{"insecure", "maybe", true, nil},
		{"metrics.pushgateway_url", "http://pg:9091", false, func(c *CLIConfig) bool { return c.Metrics.Enabled() }},
		{"tenant_id", "x", true, nil},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tc.key, tc.value)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Set(%q, %q) expected error", tc.key, tc.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q, %q) error = %v", tc.key, tc.value, err)
			}
			if !tc.check(cfg) {
				t.Errorf("Set(%q, %q) did not apply: %+v", tc.key, tc.value, cfg)
			}
		})
	}
}

// TestSettableKeys verifies the key list is sorted and complete.
func TestSettableKeys(t *testing.T) {
	keys := SettableKeys()
	if len(keys) != len(settableKeys) {
		t.Fatalf("SettableKeys() len = %d, want %d", len(keys), len(settableKeys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("SettableKeys() not sorted: %v", keys)
		}
	}
}

// TestTLSConfig_ResolvePaths verifies cert_dir supplies default file names.
func TestTLSConfig_ResolvePaths(t *testing.T) {
	tlsCfg := TLSConfig{CertDir: "/etc/recall/certs", ClientKey: "/custom/client.key"}
	tlsCfg.ResolvePaths()

	if tlsCfg.CACert != "/etc/recall/certs/ca.crt" {
		t.Errorf("CACert = %v", tlsCfg.CACert)
	}
	if tlsCfg.ClientCert != "/etc/recall/certs/client.crt" {
		t.Errorf("ClientCert = %v", tlsCfg.ClientCert)
	}
	if tlsCfg.ClientKey != "/custom/client.key" {
		t.Errorf("ClientKey = %v, explicit path should win", tlsCfg.ClientKey)
	}
}
