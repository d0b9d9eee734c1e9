package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bakkerme/postforge/internal/core"
)

// Duration is a yaml-friendly wrapper that accepts Go duration strings plus
// the day unit ("1d").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full runtime configuration. Credentials and endpoints come
// from the environment; workflow shape comes from an optional yaml document
// whose values are env-expanded before parsing.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Transform TransformConfig `yaml:"transform"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	OTel      OTelConfig      `yaml:"otel"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type TwitterConfig struct {
	APIKey        string   `yaml:"api_key"`
	BaseURL       string   `yaml:"base_url"`
	Timeout       Duration `yaml:"timeout"`
	RetryAttempts int      `yaml:"retry_attempts"`
}

type DedupeConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	MarkFailures  *bool    `yaml:"mark_failures"`
}

// MarkFailuresEnabled defaults to true: a failed id is still considered
// handled for the cache window.
func (d DedupeConfig) MarkFailuresEnabled() bool {
	if d.MarkFailures == nil {
		return true
	}
	return *d.MarkFailures
}

type TransformConfig struct {
	Language             string `yaml:"language"`
	FallbackTag          string `yaml:"fallback_tag"`
	FallbackLocalizedTag string `yaml:"fallback_localized_tag"`
	DecodeRetries        int    `yaml:"decode_retries"`
}

type PipelineConfig struct {
	DefaultStatus  string `yaml:"default_status"`
	FallbackStatus string `yaml:"fallback_status"`
	Kind           string `yaml:"kind"`
	SkipRule       string `yaml:"skip_rule"`
}

type SchedulerConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Authors  []string `yaml:"authors"`
}

type OTelConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ServiceName string            `yaml:"service_name"`
	Endpoint    string            `yaml:"endpoint"`
	Protocol    string            `yaml:"protocol"`
	Headers     map[string]string `yaml:"headers"`
	Insecure    bool              `yaml:"insecure"`
	SampleRatio float64           `yaml:"sample_ratio"`
}

// Load reads a .env file if present, parses the yaml document at path when
// one exists, layers environment variables over it, and fills defaults.
// An empty path (or a missing default file) is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		path = envString("POSTFORGE_CONFIG", "postforge.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Env-only deployments are fine.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets environment variables win over the document for credentials
// and connection details.
func (c *Config) applyEnv() {
	c.Server.Addr = envString("POSTFORGE_ADDR", c.Server.Addr)
	if origins := envList("POSTFORGE_ALLOW_ORIGINS"); len(origins) > 0 {
		c.Server.AllowOrigins = origins
	}
	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.OpenAI.APIKey = envString("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = envString("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = envString("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.Temperature = envFloat("OPENAI_TEMPERATURE", c.OpenAI.Temperature)
	c.Twitter.APIKey = envString("TWITTER_API_KEY", c.Twitter.APIKey)
	c.Twitter.BaseURL = envString("TWITTER_API_BASE_URL", c.Twitter.BaseURL)
	c.Twitter.RetryAttempts = envInt("TWITTER_RETRY_ATTEMPTS", c.Twitter.RetryAttempts)
	c.Dedupe.TTL = Duration(envDuration("DEDUPE_TTL", c.Dedupe.TTL.Std()))
	c.Scheduler.Enabled = envBool("SCHEDULER_ENABLED", c.Scheduler.Enabled)
	c.Scheduler.Interval = Duration(envDuration("SCHEDULER_INTERVAL", c.Scheduler.Interval.Std()))
	if authors := envList("SCHEDULER_AUTHORS"); len(authors) > 0 {
		c.Scheduler.Authors = authors
	}
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)

	c.OTel.Enabled = envBool("OTEL_ENABLED", c.OTel.Enabled)
	c.OTel.ServiceName = envString("OTEL_SERVICE_NAME", c.OTel.ServiceName)
	c.OTel.Endpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTel.Endpoint)
	c.OTel.Protocol = strings.ToLower(envString("OTEL_EXPORTER_OTLP_PROTOCOL", c.OTel.Protocol))
	if h := parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); len(h) > 0 {
		c.OTel.Headers = h
	}
	c.OTel.Insecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(c.OTel.Endpoint))
	c.OTel.SampleRatio = clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", c.OTel.SampleRatio))
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = 0.2
	}
	if c.Twitter.Timeout == 0 {
		c.Twitter.Timeout = Duration(15 * time.Second)
	}
	if c.Twitter.RetryAttempts == 0 {
		c.Twitter.RetryAttempts = 3
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = Duration(12 * time.Hour)
	}
	if c.Dedupe.SweepInterval == 0 {
		c.Dedupe.SweepInterval = Duration(time.Hour)
	}
	if c.Transform.Language == "" {
		c.Transform.Language = "Arabic"
	}
	if c.Transform.DecodeRetries == 0 {
		c.Transform.DecodeRetries = 2
	}
	if c.Pipeline.DefaultStatus == "" {
		c.Pipeline.DefaultStatus = string(core.StatusPublished)
	}
	if c.Pipeline.FallbackStatus == "" {
		c.Pipeline.FallbackStatus = string(core.StatusDraft)
	}
	if c.Pipeline.Kind == "" {
		c.Pipeline.Kind = "tweet"
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = Duration(30 * time.Minute)
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "postforge"
	}
	if c.OTel.Protocol == "" {
		c.OTel.Protocol = "grpc"
	}
	if c.OTel.SampleRatio == 0 {
		c.OTel.SampleRatio = 1.0
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if !core.Status(c.Pipeline.DefaultStatus).Valid() {
		return fmt.Errorf("pipeline.default_status: unknown status %q", c.Pipeline.DefaultStatus)
	}
	if !core.Status(c.Pipeline.FallbackStatus).Valid() {
		return fmt.Errorf("pipeline.fallback_status: unknown status %q", c.Pipeline.FallbackStatus)
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Authors) == 0 {
		return fmt.Errorf("scheduler.enabled requires at least one author")
	}
	return nil
}
