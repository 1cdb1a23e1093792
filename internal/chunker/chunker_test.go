package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		maxChars int
		overlap  int
		wantErr  error
	}{
		{name: "defaults", maxChars: DefaultMaxChars, overlap: DefaultOverlap},
		{name: "zero overlap", maxChars: 100, overlap: 0},
		{name: "max chars zero", maxChars: 0, overlap: 0, wantErr: ErrInvalidMaxChars},
		{name: "max chars negative", maxChars: -5, overlap: 0, wantErr: ErrInvalidMaxChars},
		{name: "overlap negative clamps to zero", maxChars: 100, overlap: -1},
		{name: "overlap equals max", maxChars: 100, overlap: 100, wantErr: ErrOverlapTooLarge},
		{name: "overlap exceeds max", maxChars: 100, overlap: 150, wantErr: ErrOverlapTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.maxChars, tt.overlap)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New(%d, %d) error = %v, want %v", tt.maxChars, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplitShortText(t *testing.T) {
	t.Parallel()

	c, err := New(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Split("a short document")
	if len(got) != 1 {
		t.Fatalf("Split() returned %d chunks, want 1", len(got))
	}
	if got[0] != "a short document" {
		t.Errorf("Split() = %q, want input unchanged", got[0])
	}
}

func TestSplitParagraphs(t *testing.T) {
	t.Parallel()

	c, err := New(1200, 200)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Split("Paragraph A.\n\nParagraph B.")
	want := []string{"Paragraph A.", "Paragraph B."}
	if len(got) != len(want) {
		t.Fatalf("Split() returned %d chunks, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitBlankLineVariants(t *testing.T) {
	t.Parallel()

	c, err := New(1200, 200)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "crlf separator", text: "One.\r\n\r\nTwo.", want: 2},
		{name: "blank line with spaces", text: "One.\n   \nTwo.", want: 2},
		{name: "multiple blank lines", text: "One.\n\n\n\nTwo.", want: 2},
		{name: "single newline is not a separator", text: "One.\nTwo.", want: 1},
		{name: "whitespace only", text: "   \n\t\n  ", want: 0},
		{name: "empty", text: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Split(tt.text)
			if len(got) != tt.want {
				t.Errorf("Split(%q) returned %d chunks, want %d: %q", tt.text, len(got), tt.want, got)
			}
		})
	}
}

func TestSplitLongParagraphWindows(t *testing.T) {
	t.Parallel()

	const maxChars, overlap = 50, 10

	c, err := New(maxChars, overlap)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("abcde ", 40) // 240 chars, single paragraph
	got := c.Split(text)
	if len(got) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(got))
	}

	for i, chunk := range got {
		if n := utf8.RuneCountInString(chunk); n > maxChars {
			t.Errorf("chunk[%d] has %d runes, want <= %d", i, n, maxChars)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk[%d] is whitespace only", i)
		}
	}

	// Consecutive windows share exactly the configured overlap: the
	// last overlap runes of each chunk reappear at the start of the
	// next one.
	for i := 1; i < len(got); i++ {
		prev := []rune(got[i-1])
		cur := []rune(got[i])
		if len(prev) < overlap || len(cur) < overlap {
			t.Fatalf("chunk %d or %d shorter than the overlap", i-1, i)
		}
		tail := string(prev[len(prev)-overlap:])
		head := string(cur[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d overlap mismatch: tail %q, head %q", i-1, i, tail, head)
		}
	}
}

func TestSplitUnicode(t *testing.T) {
	t.Parallel()

	c, err := New(4, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Multibyte runes must never be cut mid-sequence.
	got := c.Split("héllo wörld")
	for i, chunk := range got {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk[%d] = %q is not valid UTF-8", i, chunk)
		}
		if n := utf8.RuneCountInString(chunk); n > 4 {
			t.Errorf("chunk[%d] has %d runes, want <= 4", i, n)
		}
	}
}

func TestSplitOrderPreserved(t *testing.T) {
	t.Parallel()

	c, err := New(1200, 200)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Split("first\n\nsecond\n\nthird")
	want := []string{"first", "second", "third"}
	if len(got) != 3 {
		t.Fatalf("Split() returned %d chunks, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
