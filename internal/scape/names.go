package scape

import "strings"

// Normalize canonicalizes a scape name: case and separators are folded and
// a "scape-" prefix is dropped, so "Split_Set" and "scape-one-max" resolve
// to registered names. Unknown names come back folded but otherwise intact.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if _, ok := registry[normalized]; ok {
		return normalized
	}

	candidate := strings.TrimPrefix(normalized, "scape-")
	if candidate == normalized {
		candidate = strings.TrimPrefix(candidate, "scape")
	}
	candidate = strings.Trim(candidate, "-")
	if _, ok := registry[candidate]; ok {
		return candidate
	}
	// "splitset", "onemax"
	for known := range registry {
		if strings.ReplaceAll(known, "-", "") == candidate {
			return known
		}
	}
	return normalized
}
