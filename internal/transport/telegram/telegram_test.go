package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("Math starts in 5 minutes", 100, "")
	if len(got) != 1 || got[0] != "Math starts in 5 minutes" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("x", 30)
	s := strings.Join([]string{line, line, line, line}, "\n")
	got := splitText(s, 70, "")
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %d", len(got))
	}
	for i, c := range got {
		if n := utf8.RuneCountInString(c); n > 70 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d not trimmed: %q", i, c)
		}
	}
	if strings.Join(got, "\n") != s {
		t.Fatal("chunks do not reassemble the input")
	}
}

func TestSplitTextRunes(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("课", 25)
	got := splitText(s, 10, "")
	if len(got) != 3 {
		t.Fatalf("chunks = %d", len(got))
	}
	if strings.Join(got, "") != s {
		t.Fatal("multi-byte text was corrupted")
	}
}

func TestSplitTextHTMLTag(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("a", 8) + "<b>bold</b>"
	got := splitText(s, 10, "HTML")
	if !strings.HasPrefix(got[1], "<b>") {
		t.Fatalf("tag was cut: %q", got)
	}
}
