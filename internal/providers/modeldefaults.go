package providers

import "strings"

// modelMaxTokens is the per-model default for MaxTokens when the caller's
// config leaves it unset. Matching is by case-insensitive substring
// (first entry wins), not by prefix alone, since Z.AI model names
// carry date/size suffixes that vary across deployments.
var modelMaxTokens = []struct {
	prefix string
	tokens int
}{
	{"GLM-4.6", 65536},
	{"GLM-4.5", 65536},
	{"GLM-4-32B-0414-128K", 16384},
}

const defaultMaxTokens = 2048

// DefaultMaxTokensForModel returns the configured default MaxTokens for a
// model name, falling back to defaultMaxTokens when the model isn't in the
// table. Matching is case-insensitive since config files and provider APIs
// disagree on casing (e.g. "GLM-4.6" vs "glm-4.6"). Pure function, no I/O.
func DefaultMaxTokensForModel(model string) int {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, entry := range modelMaxTokens {
		if strings.Contains(m, strings.ToLower(entry.prefix)) {
			return entry.tokens
		}
	}
	return defaultMaxTokens
}
