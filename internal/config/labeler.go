package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/steveyegge/labeler/internal/ai"
	"gopkg.in/yaml.v3"
)

// LabelerConfig holds process-wide configuration. It is read once at startup
// and treated as read-only afterwards.
type LabelerConfig struct {
	// Endpoint is the text-generation URL the labeling prompt is posted to
	// Env: llm_endpoint
	Endpoint string `yaml:"endpoint"`

	// APIKey is the bearer token for Endpoint. Never read from files.
	// Env: LLM_API_KEY
	APIKey string `yaml:"-"`

	// MaxAttempts is the total number of completion attempts per prompt
	// Default: 2, Range: 1-10
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBackoff is the fixed wait between attempts
	// Default: 40s, Range: 0-10m
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// RequestTimeout bounds a single HTTP attempt
	// Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RatePerMinute paces completion requests (0 = unlimited)
	RatePerMinute int `yaml:"rate_per_minute"`

	// MaxConcurrent caps simultaneous completion calls (0 = unlimited)
	MaxConcurrent int `yaml:"max_concurrent"`

	// CircuitBreaker stops calling an endpoint after repeated failures across runs
	// Default: true
	CircuitBreaker bool `yaml:"circuit_breaker"`

	// SourceRepo is the owner/name repository whose open issues are labeled
	// Default: WasmEdge/WasmEdge
	SourceRepo string `yaml:"source_repo"`

	// ReportRepo is the owner/name repository that receives labeled report issues
	ReportRepo string `yaml:"report_repo"`

	// PerPage is how many recent open issues a run examines
	// Default: 10, Range: 1-100
	PerPage int `yaml:"per_page"`

	// GitHubToken authenticates tracker calls. Env: GITHUB_TOKEN
	GitHubToken string `yaml:"-"`

	// AnthropicAPIKey enables issue summarization; without it issue bodies are truncated.
	// Env: ANTHROPIC_API_KEY
	AnthropicAPIKey string `yaml:"-"`

	// SummaryModel is the Anthropic model used for summarization
	SummaryModel string `yaml:"summary_model"`

	// Schedule is the cron expression used by the daemon
	// Default: "2 2 * * *" (daily at 02:02)
	Schedule string `yaml:"schedule"`

	// DBPath is the labeling history database
	// Default: .labeler/history.db
	DBPath string `yaml:"db_path"`

	// TaxonomyFile is an optional YAML taxonomy; empty selects the built-in list
	TaxonomyFile string `yaml:"taxonomy_file"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or console
	LogFormat string `yaml:"log_format"`
}

// DefaultLabelerConfig returns the default configuration
func DefaultLabelerConfig() LabelerConfig {
	retry := ai.DefaultRetryConfig()
	return LabelerConfig{
		Endpoint:       ai.DefaultEndpoint,
		MaxAttempts:    retry.MaxAttempts,
		RetryBackoff:   retry.Backoff,
		RequestTimeout: retry.Timeout,
		CircuitBreaker: retry.CircuitBreakerEnabled,
		SourceRepo:     "WasmEdge/WasmEdge",
		PerPage:        10,
		SummaryModel:   ai.DefaultSummaryModel,
		Schedule:       "2 2 * * *",
		DBPath:         ".labeler/history.db",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Validate checks if the configuration has valid values
func (c LabelerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http(s) URL (got %q)", c.Endpoint)
	}

	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		return fmt.Errorf("max_attempts must be between 1 and 10 (got %d)", c.MaxAttempts)
	}
	if c.RetryBackoff < 0 || c.RetryBackoff > 10*time.Minute {
		return fmt.Errorf("retry_backoff must be between 0 and 10m (got %v)", c.RetryBackoff)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %v)", c.RequestTimeout)
	}
	if c.RatePerMinute < 0 {
		return fmt.Errorf("rate_per_minute cannot be negative (got %d)", c.RatePerMinute)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative (got %d)", c.MaxConcurrent)
	}

	if err := validateRepo("source_repo", c.SourceRepo); err != nil {
		return err
	}
	if c.ReportRepo != "" {
		if err := validateRepo("report_repo", c.ReportRepo); err != nil {
			return err
		}
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		return fmt.Errorf("per_page must be between 1 and 100 (got %d)", c.PerPage)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log_format must be 'json' or 'console' (got %q)", c.LogFormat)
	}

	return nil
}

func validateRepo(field, repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%s must be owner/name (got %q)", field, repo)
	}
	return nil
}

// RetryConfig returns the completion retry policy described by c
func (c LabelerConfig) RetryConfig() ai.RetryConfig {
	retry := ai.DefaultRetryConfig()
	retry.MaxAttempts = c.MaxAttempts
	retry.Backoff = c.RetryBackoff
	retry.Timeout = c.RequestTimeout
	retry.CircuitBreakerEnabled = c.CircuitBreaker
	return retry
}

// String returns a human-readable representation of the config with secrets redacted
func (c LabelerConfig) String() string {
	return fmt.Sprintf(
		"LabelerConfig{Endpoint: %s, APIKey: %s, MaxAttempts: %d, RetryBackoff: %v, "+
			"RequestTimeout: %v, RatePerMinute: %d, MaxConcurrent: %d, CircuitBreaker: %t, SourceRepo: %s, "+
			"ReportRepo: %s, PerPage: %d, GitHubToken: %s, AnthropicAPIKey: %s, "+
			"Schedule: %q, DBPath: %s, TaxonomyFile: %s, LogLevel: %s, LogFormat: %s}",
		c.Endpoint, redact(c.APIKey), c.MaxAttempts, c.RetryBackoff,
		c.RequestTimeout, c.RatePerMinute, c.MaxConcurrent, c.CircuitBreaker, c.SourceRepo,
		c.ReportRepo, c.PerPage, redact(c.GitHubToken), redact(c.AnthropicAPIKey),
		c.Schedule, c.DBPath, c.TaxonomyFile, c.LogLevel, c.LogFormat,
	)
}

func redact(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return fmt.Sprintf("[REDACTED:%d]", len(secret))
}

// LoadFile overlays the YAML file at path onto cfg
func LoadFile(path string, cfg *LabelerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables, and validates the result.
//
// Environment variables:
//   - llm_endpoint: Completion endpoint URL
//   - LLM_API_KEY: Completion bearer token
//   - LABELER_MAX_ATTEMPTS: Completion attempts per prompt (default: 2)
//   - LABELER_RETRY_BACKOFF: Wait between attempts (default: 40s)
//   - LABELER_REQUEST_TIMEOUT: Per-attempt timeout (default: 60s)
//   - LABELER_RATE_PER_MINUTE: Request pacing, 0 for unlimited (default: 0)
//   - LABELER_MAX_CONCURRENT: Concurrent completion calls, 0 for unlimited (default: 0)
//   - LABELER_CIRCUIT_BREAKER: Enable the completion circuit breaker (default: true)
//   - LABELER_SOURCE_REPO, LABELER_REPORT_REPO: owner/name repositories
//   - LABELER_PER_PAGE: Issues examined per run (default: 10)
//   - GITHUB_TOKEN, ANTHROPIC_API_KEY, LABELER_SUMMARY_MODEL
//   - LABELER_SCHEDULE, LABELER_DB_PATH, LABELER_TAXONOMY_FILE
//   - LABELER_LOG_LEVEL, LABELER_LOG_FORMAT
func Load(path string) (LabelerConfig, error) {
	cfg := DefaultLabelerConfig()

	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid labeler configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *LabelerConfig) error {
	strs := []struct {
		key  string
		dest *string
	}{
		{ai.EnvEndpoint, &cfg.Endpoint},
		{ai.EnvAPIKey, &cfg.APIKey},
		{"LABELER_SOURCE_REPO", &cfg.SourceRepo},
		{"LABELER_REPORT_REPO", &cfg.ReportRepo},
		{"GITHUB_TOKEN", &cfg.GitHubToken},
		{"ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey},
		{"LABELER_SUMMARY_MODEL", &cfg.SummaryModel},
		{"LABELER_SCHEDULE", &cfg.Schedule},
		{"LABELER_DB_PATH", &cfg.DBPath},
		{"LABELER_TAXONOMY_FILE", &cfg.TaxonomyFile},
		{"LABELER_LOG_LEVEL", &cfg.LogLevel},
		{"LABELER_LOG_FORMAT", &cfg.LogFormat},
	}
	for _, s := range strs {
		if err := parseEnvString(s.key, s.dest); err != nil {
			return err
		}
	}

	ints := []struct {
		key  string
		dest *int
	}{
		{"LABELER_MAX_ATTEMPTS", &cfg.MaxAttempts},
		{"LABELER_RATE_PER_MINUTE", &cfg.RatePerMinute},
		{"LABELER_MAX_CONCURRENT", &cfg.MaxConcurrent},
		{"LABELER_PER_PAGE", &cfg.PerPage},
	}
	for _, i := range ints {
		if err := parseEnvInt(i.key, i.dest); err != nil {
			return err
		}
	}

	if err := parseEnvBool("LABELER_CIRCUIT_BREAKER", &cfg.CircuitBreaker); err != nil {
		return err
	}
	if err := parseEnvDuration("LABELER_RETRY_BACKOFF", &cfg.RetryBackoff); err != nil {
		return err
	}
	return parseEnvDuration("LABELER_REQUEST_TIMEOUT", &cfg.RequestTimeout)
}
