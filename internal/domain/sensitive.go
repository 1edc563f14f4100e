package domain

import "regexp"

// Patterns that mark content as sensitive. A candidate matching any of
// these must never be persisted, regardless of how it was produced.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpassword\b`),
	regexp.MustCompile(`(?i)\bpasswd\b`),
	regexp.MustCompile(`(?i)api[_\s-]?key`),
	regexp.MustCompile(`(?i)\bsecret\b`),
	regexp.MustCompile(`(?i)\btoken\b`),
	regexp.MustCompile(`(?i)\bcredential`),
	regexp.MustCompile(`(?i)private[_\s-]?key`),
	regexp.MustCompile(`(?i)\bssn\b`),
	regexp.MustCompile(`(?i)social security`),
	// Card-like digit groups: 13-16 digits allowing space/dash separators.
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
}

// ContainsSensitiveContent reports whether any of the given strings match
// a sensitive-data pattern (credentials, card numbers, and similar).
func ContainsSensitiveContent(texts ...string) bool {
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, p := range sensitivePatterns {
			if p.MatchString(text) {
				return true
			}
		}
	}
	return false
}
