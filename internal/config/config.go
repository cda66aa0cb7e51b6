package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for inboxswoop.
type Config struct {
	// CredentialsFile is the OAuth client secret downloaded from the Google console.
	CredentialsFile string `yaml:"credentials_file"`

	// TokenFile stores the user's credential between runs.
	TokenFile string `yaml:"token_file"`

	// User is the Gmail user id, normally the special value "me".
	User string `yaml:"user"`

	// Filter is the Gmail search expression used by list and archive.
	Filter string `yaml:"filter"`

	// JournalPath is the SQLite database recording processed messages.
	JournalPath string `yaml:"journal_path"`

	Gmail     GmailConfig     `yaml:"gmail"`
	Web       WebConfig       `yaml:"web"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// GmailConfig tunes calls to the Gmail API.
type GmailConfig struct {
	// PageSize is maxResults per list page; 0 uses the service default.
	PageSize int64 `yaml:"page_size"`

	// QPS paces API calls. Burst is the token bucket size.
	QPS   float64 `yaml:"qps"`
	Burst int     `yaml:"burst"`

	// Timeout bounds a single API call.
	Timeout time.Duration `yaml:"timeout"`
}

// WebConfig configures the serve command.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig configures the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string `yaml:"metrics_exporter"`

	// TracingExporter is otlp, stdout or none.
	TracingExporter string `yaml:"tracing_exporter"`

	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		CredentialsFile: filepath.Join(ConfigDir(), "credentials.json"),
		TokenFile:       filepath.Join(CacheDir(), "token.json"),
		User:            "me",
		Filter:          "label:inbox",
		JournalPath:     filepath.Join(CacheDir(), "journal.db"),
		Gmail: GmailConfig{
			QPS:     5,
			Burst:   10,
			Timeout: 30 * time.Second,
		},
		Web: WebConfig{
			Addr: ":8080",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Telemetry: TelemetryConfig{
			Enabled:         true,
			MetricsExporter: "prometheus",
			TracingExporter: "none",
			SamplingRate:    0.1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves the configuration. An empty path means DefaultConfigPath,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	if err := cfg.readFile(expandHome(path)); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.CredentialsFile = expandHome(cfg.CredentialsFile)
	cfg.TokenFile = expandHome(cfg.TokenFile)
	cfg.JournalPath = expandHome(cfg.JournalPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error. Variables that are already
// set are left untouched.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.CredentialsFile, "INBOXSWOOP_CREDENTIALS_FILE")
	setString(&c.TokenFile, "INBOXSWOOP_TOKEN_FILE")
	setString(&c.User, "INBOXSWOOP_USER")
	setString(&c.Filter, "INBOXSWOOP_FILTER")
	setString(&c.JournalPath, "INBOXSWOOP_JOURNAL")
	setString(&c.Web.Addr, "INBOXSWOOP_WEB_ADDR")
	setString(&c.Metrics.Addr, "METRICS_ADDR")
	setString(&c.Log.Level, "INBOXSWOOP_LOG_LEVEL")
	setString(&c.Log.Format, "INBOXSWOOP_LOG_FORMAT")

	setString(&c.Telemetry.MetricsExporter, "METRICS_EXPORTER")
	setString(&c.Telemetry.TracingExporter, "TRACING_EXPORTER")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	return errors.Join(
		setBool(&c.Metrics.Enabled, "METRICS_ENABLED"),
		setBool(&c.Telemetry.Enabled, "INSTRUMENTATION_ENABLED"),
		setBool(&c.Telemetry.OTLPInsecure, "OTEL_EXPORTER_OTLP_INSECURE"),
		setFloat(&c.Telemetry.SamplingRate, "OTEL_TRACES_SAMPLER_ARG"),
		setFloat(&c.Gmail.QPS, "INBOXSWOOP_GMAIL_QPS"),
	)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = f
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.User == "" {
		return fmt.Errorf("user must not be empty")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token_file must not be empty")
	}
	if c.Gmail.QPS < 0 {
		return fmt.Errorf("gmail.qps must not be negative, got %v", c.Gmail.QPS)
	}
	if c.Gmail.QPS > 0 && c.Gmail.Burst < 1 {
		return fmt.Errorf("gmail.burst must be at least 1 when gmail.qps is set")
	}
	if c.Gmail.PageSize < 0 || c.Gmail.PageSize > 500 {
		return fmt.Errorf("gmail.page_size must be between 0 and 500, got %d", c.Gmail.PageSize)
	}
	return nil
}
