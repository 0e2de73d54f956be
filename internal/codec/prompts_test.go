package codec

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes per rune

	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 (backed up to the rune boundary)", len(got))
	}

	if got := truncate("ascii", 3); got != "asc" {
		t.Fatalf("ascii truncation = %q", got)
	}
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("under-cap input changed: %q", got)
	}
}

func TestNumberLines(t *testing.T) {
	got := numberLines("alpha\nbeta")
	want := "1 | alpha\n2 | beta\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
