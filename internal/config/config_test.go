package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
endpoint: https://api.openai.com
extra_unknown_field: true
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
model: gpt-4o-mini
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxToolIterations != 10 {
		t.Errorf("MaxToolIterations = %d, want 10", cfg.MaxToolIterations)
	}
	if cfg.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cfg.Temperature, DefaultTemperature)
	}
	if cfg.AutoExecuteTools == nil || !*cfg.AutoExecuteTools {
		t.Error("AutoExecuteTools should default to true")
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048 for an unrecognized model", cfg.MaxTokens)
	}
	if cfg.ZaiMaxRetries != 3 {
		t.Errorf("ZaiMaxRetries = %d, want 3", cfg.ZaiMaxRetries)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json defaults", cfg.Logging)
	}
}

func TestLoadPreservesExplicitZeroMaxToolIterations(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
max_tool_iterations: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxToolIterations != 0 {
		t.Errorf("MaxToolIterations = %d, want an explicit 0 to survive untouched, not be promoted to the default", cfg.MaxToolIterations)
	}
}

func TestLoadPerModelMaxTokensTable(t *testing.T) {
	cases := []struct {
		model string
		want  int
	}{
		{"GLM-4.6", 65536},
		{"glm-4.5-air", 65536},
		{"GLM-4-32B-0414-128K", 16384},
		{"gpt-4o-mini", 2048},
	}
	for _, tc := range cases {
		path := writeConfig(t, `
active_provider: zai
model: `+tc.model+`
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error for model %q: %v", tc.model, err)
		}
		if cfg.MaxTokens != tc.want {
			t.Errorf("model %q: MaxTokens = %d, want %d", tc.model, cfg.MaxTokens, tc.want)
		}
	}
}

func TestLoadRespectsExplicitMaxTokens(t *testing.T) {
	path := writeConfig(t, `
active_provider: zai
model: GLM-4.6
max_tokens: 4096
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want the explicit 4096, not the model table's default", cfg.MaxTokens)
	}
}

func TestLoadValidatesActiveProvider(t *testing.T) {
	path := writeConfig(t, `
active_provider: not-a-real-family
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "active_provider") {
		t.Fatalf("expected active_provider error, got %v", err)
	}
}

func TestLoadRejectsNegativeMaxToolIterations(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
max_tool_iterations: -1
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_tool_iterations") {
		t.Fatalf("expected max_tool_iterations error, got %v", err)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
logging:
  level: verbose
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging.level error, got %v", err)
	}
}

func TestLoadAutoExecuteToolsCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
auto_execute_tools: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AutoExecuteTools == nil || *cfg.AutoExecuteTools {
		t.Error("expected auto_execute_tools: false to be respected, not defaulted back to true")
	}
	if cfg.LoopConfig().AutoExecuteTools {
		t.Error("LoopConfig() should carry the disabled auto_execute_tools through")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(basePath, []byte("model: gpt-4o-mini\ntemperature: 0.3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mainPath := filepath.Join(dir, "main.yaml")
	if err := os.WriteFile(mainPath, []byte("$include: base.yaml\nactive_provider: openai\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want the included base.yaml's value", cfg.Model)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want the included base.yaml's value", cfg.Temperature)
	}
}

func TestConfigProfileProjection(t *testing.T) {
	path := writeConfig(t, `
active_provider: anthropic
endpoint: https://api.anthropic.com
api_key: sk-test
model: claude-3-5-sonnet
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	profile := cfg.Profile()
	if string(profile.Family) != "anthropic" {
		t.Errorf("Family = %q, want anthropic", profile.Family)
	}
	if profile.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", profile.APIKey)
	}
}

func TestConfigLoopConfigProjection(t *testing.T) {
	path := writeConfig(t, `
active_provider: openai
max_tool_iterations: 4
thinking_enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	lc := cfg.LoopConfig()
	if lc.MaxToolIterations != 4 {
		t.Errorf("MaxToolIterations = %d, want 4", lc.MaxToolIterations)
	}
	if !lc.ThinkingEnabled {
		t.Error("expected ThinkingEnabled to be carried through")
	}
	if !lc.AutoExecuteTools {
		t.Error("expected AutoExecuteTools to default to true when unset")
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "arula.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
