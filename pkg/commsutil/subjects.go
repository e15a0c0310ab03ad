package commsutil

import (
	"strings"
	"unicode"
)

// Default COMMS subjects.
const (
	// SubjectChangeEvent receives every entity change.
	SubjectChangeEvent = "inventory.changed"
	// SubjectChangeWildcard matches every per-entity change subject.
	SubjectChangeWildcard = "inventory.changed.*"
)

// BuildChangeSubject builds the per-entity change subject, e.g.
// inventory.changed.currentstock for "CurrentStock".
func BuildChangeSubject(entity string) string {
	return SubjectChangeEvent + "." + SubjectToken(entity)
}

// SubjectToken lowercases s and replaces every rune that is not a letter,
// digit, dash or underscore with an underscore so it forms one subject token.
func SubjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}
