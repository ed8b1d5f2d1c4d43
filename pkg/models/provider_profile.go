package models

// ProviderFamily is the closed set of wire protocols the Provider Adapter
// knows how to speak. New providers are added by extending this enum and
// its dispatch, not by registering a new dynamic implementation.
type ProviderFamily string

const (
	FamilyOpenAI     ProviderFamily = "openai"
	FamilyOpenRouter ProviderFamily = "openrouter"
	FamilyAnthropic  ProviderFamily = "anthropic"
	FamilyOllama     ProviderFamily = "ollama"
	FamilyZai        ProviderFamily = "zai"
	FamilyCustom     ProviderFamily = "custom"
)

// ProviderProfile captures the wire-format quirks of one provider family,
// resolved once per configured provider and consulted on every request.
type ProviderProfile struct {
	Family ProviderFamily

	Endpoint string
	APIKey   string
	Model    string

	// ThinkingEnabled maps to the family-specific reasoning toggle:
	// reasoning_effort (openai/openrouter), thinking.type=enabled
	// (anthropic/zai), options.think (ollama).
	ThinkingEnabled bool

	Temperature float64
	MaxTokens   int

	ZaiMaxRetries           int
	ZaiTimeoutSeconds       int
	ZaiUsageTrackingEnabled bool
}

// SupportsStreamOptions reports whether the family accepts
// stream_options.include_usage on a streaming request.
func (p ProviderProfile) SupportsStreamOptions() bool {
	switch p.Family {
	case FamilyOpenAI, FamilyOpenRouter:
		return true
	default:
		return false
	}
}

// SupportsToolChoice reports whether the family accepts an explicit
// tool_choice value alongside streaming.
func (p ProviderProfile) SupportsToolChoice() bool {
	switch p.Family {
	case FamilyOpenAI, FamilyOpenRouter:
		return true
	default:
		return false
	}
}

// RequiresOneShotForTools reports families whose streaming mode cannot
// carry tool calls, forcing a non-streaming fallback request whenever
// tools are attached.
func (p ProviderProfile) RequiresOneShotForTools() bool {
	return p.Family == FamilyZai
}

// RequiresHTTP1 reports families that reject HTTP/2 connections.
func (p ProviderProfile) RequiresHTTP1() bool {
	return p.Family == FamilyZai
}
