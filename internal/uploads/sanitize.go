package uploads

import "strings"

// DefaultName is used when an upload arrives without a filename
const DefaultName = "data.csv"

// Sanitize maps every character outside [A-Za-z0-9._-] to '_'.
// The result has the same number of characters as raw
func Sanitize(raw string) string {
	return strings.Map(func(r rune) rune {
		if isAllowed(r) {
			return r
		}
		return '_'
	}, raw)
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

// SafeName returns the sanitized upload name, falling back to DefaultName.
// Names made only of dots ("." and "..") would resolve to a directory once
// joined with the uploads dir, so their dots become underscores too. An
// upload named like the converter output gets a "_" prefix so the two never
// share a path
func SafeName(raw string) string {
	if raw == "" {
		return DefaultName
	}
	safe := Sanitize(raw)
	switch {
	case strings.Trim(safe, ".") == "":
		return strings.Repeat("_", len(safe))
	case safe == ArtifactName:
		return "_" + safe
	}
	return safe
}
