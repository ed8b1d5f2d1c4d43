package providers

import "strings"

// knownSuffixes are trimmed from a configured base endpoint before a
// family-specific path is appended, so the same config value works
// whether the user pasted a bare host, an API root, or a full chat path.
// Longer suffixes are checked first so "/v1/chat/completions" isn't left
// partially stripped to "/v1".
var knownSuffixes = []string{
	"/v1/chat/completions",
	"/chat/completions",
	"/api/chat",
	"/api/generate",
	"/v1",
}

// NormalizeEndpoint trims a trailing slash and any known API-path suffix
// from a configured base URL. It is a pure function: same input, same
// output, no I/O.
func NormalizeEndpoint(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, suffix := range knownSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			trimmed = strings.TrimSuffix(trimmed, suffix)
			trimmed = strings.TrimRight(trimmed, "/")
			break
		}
	}
	return trimmed
}

// DetectFamily sniffs a normalized endpoint to resolve the "custom"
// provider family to a concrete wire protocol. Z.AI's own endpoint is
// recognized so a user-configured "custom" profile pointed at api.z.ai
// still gets Z.AI's streaming/schema/message-shape rules.
func DetectFamily(endpoint string) string {
	if strings.Contains(endpoint, "api.z.ai") {
		return "zai"
	}
	return "custom"
}
