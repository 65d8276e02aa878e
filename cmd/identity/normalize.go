package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// Note: only trim + lower-case; provider-specific rules (dots, plus tags) are not applied.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeDisplayName trims surrounding whitespace and collapses inner runs.
func NormalizeDisplayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
