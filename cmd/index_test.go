package cmd

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitPassages(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		if got := splitPassages(""); len(got) != 0 {
			t.Errorf("splitPassages(\"\") = %v, want empty", got)
		}
		if got := splitPassages("\n\n  \n\n"); len(got) != 0 {
			t.Errorf("splitPassages(blank) = %v, want empty", got)
		}
	})

	t.Run("merges short paragraphs", func(t *testing.T) {
		t.Parallel()
		got := splitPassages("First paragraph.\n\nSecond paragraph.")
		if len(got) != 1 {
			t.Fatalf("got %d passages, want 1", len(got))
		}
		if got[0] != "First paragraph.\n\nSecond paragraph." {
			t.Errorf("merged passage = %q", got[0])
		}
	})

	t.Run("splits at length cap", func(t *testing.T) {
		t.Parallel()
		a := strings.Repeat("a", maxPassageLen-10)
		b := strings.Repeat("b", maxPassageLen-10)
		got := splitPassages(a + "\n\n" + b)
		if len(got) != 2 {
			t.Fatalf("got %d passages, want 2", len(got))
		}
	})

	t.Run("normalizes CRLF", func(t *testing.T) {
		t.Parallel()
		got := splitPassages("one\r\n\r\ntwo")
		if len(got) != 1 || got[0] != "one\n\ntwo" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("chops oversized paragraph", func(t *testing.T) {
		t.Parallel()
		got := splitPassages(strings.Repeat("x", maxPassageLen*2+5))
		if len(got) != 3 {
			t.Fatalf("got %d passages, want 3", len(got))
		}
		for _, p := range got {
			if len(p) > maxPassageLen {
				t.Errorf("passage length %d exceeds cap", len(p))
			}
		}
	})
}

func TestChopRunes(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("好", 100)
	pieces := chopRunes(s, 7)
	var rebuilt strings.Builder
	for _, p := range pieces {
		if !utf8.ValidString(p) {
			t.Errorf("piece %q is not valid UTF-8", p)
		}
		if len(p) > 7 {
			t.Errorf("piece length %d exceeds max", len(p))
		}
		rebuilt.WriteString(p)
	}
	if rebuilt.String() != s {
		t.Error("pieces do not rebuild the original string")
	}
}
