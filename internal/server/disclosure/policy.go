// Package disclosure implements the release decision for generated answers:
// authorized callers receive the full answer, unauthorized callers only a
// bounded character prefix. Authorization is never an input the policy
// remembers; the caller obtains it fresh from the oracle for every decision.
package disclosure

// DefaultTruncateLimit is the default maximum number of characters released
// to an unauthorized caller.
const DefaultTruncateLimit = 100

// Ellipsis marks an answer that was actually cut.
const Ellipsis = "…"

// Decision is the outcome of one disclosure evaluation. Exactly one of
// FullAnswer and TruncatedAnswer is set.
type Decision struct {
	FullAnswer      *string
	TruncatedAnswer *string
}

// Decide evaluates the two-state policy for a freshly generated answer.
// limit counts characters, not bytes; values < 1 fall back to
// DefaultTruncateLimit.
func Decide(authorized bool, answer string, limit int) Decision {
	if authorized {
		return Decision{FullAnswer: &answer}
	}
	truncated := Truncate(answer, limit)
	return Decision{TruncatedAnswer: &truncated}
}

// Truncate returns the first limit characters of s, suffixed with the
// ellipsis marker only when something was cut. Operating on runes guarantees
// a multi-byte character is never split.
func Truncate(s string, limit int) string {
	if limit < 1 {
		limit = DefaultTruncateLimit
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + Ellipsis
}

// Released reports the text a decision actually handed to the caller,
// regardless of which branch was taken.
func (d Decision) Released() string {
	if d.FullAnswer != nil {
		return *d.FullAnswer
	}
	if d.TruncatedAnswer != nil {
		return *d.TruncatedAnswer
	}
	return ""
}
