package disclosure

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDecide_Authorized(t *testing.T) {
	answer := strings.Repeat("a", 500)

	d := Decide(true, answer, DefaultTruncateLimit)

	if d.FullAnswer == nil || *d.FullAnswer != answer {
		t.Fatalf("expected full answer for authorized caller")
	}
	if d.TruncatedAnswer != nil {
		t.Fatalf("truncated answer must be nil for authorized caller")
	}
	if d.Released() != answer {
		t.Fatalf("Released() mismatch")
	}
}

func TestDecide_UnauthorizedTruncates(t *testing.T) {
	answer := strings.Repeat("x", 120)

	d := Decide(false, answer, 100)

	if d.FullAnswer != nil {
		t.Fatalf("full answer must be nil for unauthorized caller")
	}
	want := strings.Repeat("x", 100) + Ellipsis
	if d.TruncatedAnswer == nil || *d.TruncatedAnswer != want {
		t.Fatalf("got %q, want %q", *d.TruncatedAnswer, want)
	}
}

func TestDecide_UnauthorizedShortAnswerNotMarked(t *testing.T) {
	d := Decide(false, "short answer", 100)
	if d.TruncatedAnswer == nil || *d.TruncatedAnswer != "short answer" {
		t.Fatalf("short answers must be returned verbatim, got %v", d.TruncatedAnswer)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"one over limit", "hello!", 5, "hello" + Ellipsis},
		{"zero limit falls back to default", strings.Repeat("y", 101), 0, strings.Repeat("y", 100) + Ellipsis},
		{"empty", "", 5, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Truncate(tc.in, tc.limit); got != tc.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}

func TestTruncate_CountsCharactersNotBytes(t *testing.T) {
	// Cyrillic characters are 2 bytes each in UTF-8.
	in := strings.Repeat("д", 120)

	got := Truncate(in, 100)

	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a multi-byte character: %q", got)
	}
	want := strings.Repeat("д", 100) + Ellipsis
	if got != want {
		t.Fatalf("got %d chars, want 100 + ellipsis", len([]rune(got)))
	}
}

func TestTruncate_PrefixProperty(t *testing.T) {
	full := "answer with некоторый смешанный текст and emoji 🤖 to make it long enough for the test to cut it somewhere"

	got := Truncate(full, 30)

	trimmed := strings.TrimSuffix(got, Ellipsis)
	if !strings.HasPrefix(full, trimmed) {
		t.Fatalf("truncated text %q is not a prefix of the full answer", trimmed)
	}
	if len([]rune(trimmed)) != 30 {
		t.Fatalf("want 30 characters, got %d", len([]rune(trimmed)))
	}
}
