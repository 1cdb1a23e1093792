// Package chunker splits raw document text into bounded, overlapping
// segments suitable for embedding and retrieval.
//
// Splitting happens in two stages: paragraphs first (blank-line
// boundaries keep coherent units together), then a sliding window over
// any paragraph longer than the configured maximum. The window overlap
// exists so a sentence or fact sitting exactly on a chunk boundary is
// still retrievable from at least one chunk.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Default chunking parameters, tuned for embedding models with a
// few-thousand-token input limit.
const (
	DefaultMaxChars = 1200
	DefaultOverlap  = 200
)

var (
	// ErrInvalidMaxChars indicates a non-positive maximum chunk length.
	ErrInvalidMaxChars = errors.New("max chars must be positive")

	// ErrOverlapTooLarge indicates overlap >= max chars, which would
	// make the sliding window loop forever.
	ErrOverlapTooLarge = errors.New("overlap must be smaller than max chars")
)

// blankLine matches a paragraph boundary: a newline, an optional
// whitespace-only line, and at least one more newline.
var blankLine = regexp.MustCompile(`\n[ \t]*\n+`)

// Chunker splits text into chunks of at most MaxChars characters
// (runes, not bytes) with Overlap characters shared between
// consecutive windows of the same paragraph.
//
// Chunker is immutable after construction and safe for concurrent use.
type Chunker struct {
	maxChars int
	overlap  int
}

// New creates a Chunker. maxChars must be positive and strictly
// greater than overlap; a window that advances by zero or fewer
// characters is a configuration error, not something to loop on.
func New(maxChars, overlap int) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxChars, maxChars)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		return nil, fmt.Errorf("%w: max %d, overlap %d", ErrOverlapTooLarge, maxChars, overlap)
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}, nil
}

// Split splits text into ordered, non-empty chunks. Line endings are
// normalized before paragraph detection. Whitespace-only input yields
// no chunks. Text that fits a single window comes back as exactly one
// chunk equal to the trimmed input.
func (c *Chunker) Split(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, para := range blankLine.Split(normalized, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, c.window(para)...)
	}
	return chunks
}

// window slides a fixed-size window across a single paragraph,
// stepping maxChars-overlap runes each time. The final window may be
// shorter than maxChars.
func (c *Chunker) window(para string) []string {
	runes := []rune(para)
	if len(runes) <= c.maxChars {
		return []string{para}
	}

	step := c.maxChars - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		w := string(runes[start:end])
		// A window inside a paragraph can still be all whitespace
		// (long space runs); those carry nothing worth retrieving.
		if strings.TrimSpace(w) != "" {
			out = append(out, w)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
