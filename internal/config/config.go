// Package config implements the external config surface spec.md section 6
// enumerates: the provider profile (active_provider, endpoint, api_key,
// model), the orchestrator's LoopConfig knobs (thinking_enabled,
// max_tool_iterations, auto_execute_tools), Z.AI's extra tuning
// (zai_max_retries, zai_timeout_seconds, zai_usage_tracking_enabled), and
// the completion parameters (temperature, max_tokens). Grounded on the
// teacher's config.go (YAML + gopkg.in/yaml.v3's KnownFields strict
// decoding, env var expansion, a validate-after-defaults pass) and
// loader.go ($include directive resolution via a small recursive merge),
// trimmed to this spec's actual option set — the teacher's gateway/
// channels/RAG/marketplace/auth sections have no counterpart in a
// provider-agnostic orchestrator core and are dropped, not adapted: there
// is nothing in SPEC_FULL.md for them to serve.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CriticalRange/arula-cli-sub001/internal/orchestrator"
	"github.com/CriticalRange/arula-cli-sub001/internal/providers"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// DefaultTemperature is spec.md section 6's stated default for
// temperature when a profile's config omits it.
const DefaultTemperature = 0.7

// Config is the full external config surface for one configured provider
// profile plus the orchestrator loop knobs that ride along with it.
type Config struct {
	// ActiveProvider selects one of the six family tags spec.md section
	// 4.C names: openai, openrouter, anthropic, ollama, zai, custom.
	ActiveProvider string `yaml:"active_provider"`

	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`

	ThinkingEnabled   bool  `yaml:"thinking_enabled"`
	MaxToolIterations int   `yaml:"max_tool_iterations"`
	AutoExecuteTools  *bool `yaml:"auto_execute_tools"`

	ZaiMaxRetries           int  `yaml:"zai_max_retries"`
	ZaiTimeoutSeconds       int  `yaml:"zai_timeout_seconds"`
	ZaiUsageTrackingEnabled bool `yaml:"zai_usage_tracking_enabled"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig is the ambient log-sink configuration every component's
// slog.Logger is ultimately built from.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, expands, strictly decodes, defaults, and validates path
// (resolving any $include directives first, see LoadRaw).
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// An explicitly set max_tool_iterations (file or env), including 0,
	// survives defaulting; only an absent one becomes the default.
	_, iterationsSet := raw["max_tool_iterations"]
	if _, err := strconv.Atoi(strings.TrimSpace(os.Getenv("ARULA_MAX_TOOL_ITERATIONS"))); err == nil {
		iterationsSet = true
	}
	explicitIterations := cfg.MaxToolIterations
	applyDefaults(cfg)
	if iterationsSet {
		cfg.MaxToolIterations = explicitIterations
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeRawConfig(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(payload)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: expected single document")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = string(models.FamilyOpenAI)
	}
	if cfg.MaxToolIterations == 0 {
		cfg.MaxToolIterations = orchestrator.DefaultMaxToolIterations
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = providers.DefaultMaxTokensForModel(cfg.Model)
	}
	if cfg.ZaiMaxRetries == 0 {
		cfg.ZaiMaxRetries = 3
	}
	if cfg.ZaiTimeoutSeconds == 0 {
		cfg.ZaiTimeoutSeconds = 120
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.AutoExecuteTools == nil {
		enabled := true
		cfg.AutoExecuteTools = &enabled
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(os.Getenv("ARULA_API_KEY")); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ARULA_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ARULA_MODEL")); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ARULA_ACTIVE_PROVIDER")); v != "" {
		cfg.ActiveProvider = v
	}
	if v := strings.TrimSpace(os.Getenv("ARULA_MAX_TOOL_ITERATIONS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.MaxToolIterations = parsed
		}
	}
}

// ConfigValidationError collects every validation failure Load found, so a
// user sees all of them at once instead of fixing one field at a time.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var issues []string

	if !validFamily(cfg.ActiveProvider) {
		issues = append(issues, fmt.Sprintf("active_provider must be one of openai, openrouter, anthropic, ollama, zai, custom, got %q", cfg.ActiveProvider))
	}
	if cfg.MaxToolIterations < 0 {
		issues = append(issues, "max_tool_iterations must be >= 0")
	}
	if cfg.Temperature < 0 {
		issues = append(issues, "temperature must be >= 0")
	}
	if cfg.MaxTokens < 0 {
		issues = append(issues, "max_tokens must be >= 0")
	}
	if cfg.ZaiMaxRetries < 0 {
		issues = append(issues, "zai_max_retries must be >= 0")
	}
	if cfg.ZaiTimeoutSeconds < 0 {
		issues = append(issues, "zai_timeout_seconds must be >= 0")
	}
	if !validLogLevel(cfg.Logging.Level) {
		issues = append(issues, fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", cfg.Logging.Level))
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}

func validFamily(family string) bool {
	switch models.ProviderFamily(strings.ToLower(strings.TrimSpace(family))) {
	case models.FamilyOpenAI, models.FamilyOpenRouter, models.FamilyAnthropic,
		models.FamilyOllama, models.FamilyZai, models.FamilyCustom:
		return true
	default:
		return false
	}
}

func validLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// Profile projects Config into the models.ProviderProfile the Provider
// Adapter consults on every request.
func (c *Config) Profile() models.ProviderProfile {
	return models.ProviderProfile{
		Family:                  models.ProviderFamily(strings.ToLower(strings.TrimSpace(c.ActiveProvider))),
		Endpoint:                c.Endpoint,
		APIKey:                  c.APIKey,
		Model:                   c.Model,
		ThinkingEnabled:         c.ThinkingEnabled,
		Temperature:             c.Temperature,
		MaxTokens:               c.MaxTokens,
		ZaiMaxRetries:           c.ZaiMaxRetries,
		ZaiTimeoutSeconds:       c.ZaiTimeoutSeconds,
		ZaiUsageTrackingEnabled: c.ZaiUsageTrackingEnabled,
	}
}

// LoopConfig projects Config into the orchestrator.LoopConfig a stream_turn
// call needs.
func (c *Config) LoopConfig() orchestrator.LoopConfig {
	autoExecute := true
	if c.AutoExecuteTools != nil {
		autoExecute = *c.AutoExecuteTools
	}
	return orchestrator.LoopConfig{
		MaxToolIterations: c.MaxToolIterations,
		AutoExecuteTools:  autoExecute,
		ThinkingEnabled:   c.ThinkingEnabled,
	}
}
