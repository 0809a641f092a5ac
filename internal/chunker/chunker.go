// Package chunker splits document text into overlapping, bounded-length
// fragments for embedding. Splitting is deterministic and boundary-aware:
// each chunk ends at the latest paragraph break, newline, sentence end, or
// space that fits in the size budget, falling back to a hard cut when the
// window contains no usable separator. Consecutive chunks share a fixed
// overlap so sentences spanning a boundary remain retrievable.
package chunker

import "fmt"

// Default splitting parameters, counted in runes.
const (
	// DefaultChunkSize is the maximum length of a single chunk.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of trailing runes repeated at the
	// start of the next chunk.
	DefaultChunkOverlap = 50
)

// separators lists the boundary markers in priority order. The highest
// priority separator found in the window wins, at its last occurrence.
var separators = []string{"\n\n", "\n", ".", " "}

// Chunker splits text into overlapping chunks. The zero value is not usable;
// construct with New.
type Chunker struct {
	// size is the maximum chunk length in runes.
	size int
	// overlap is the number of runes shared between consecutive chunks.
	overlap int
}

// New constructs a Chunker. Non-positive size or overlap fall back to the
// defaults. Returns an error when overlap is not smaller than size, since
// that configuration can never make forward progress.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split divides text into chunks of at most size runes. Each chunk is an
// exact substring of the input; no whitespace is trimmed and no characters
// are lost. Empty input yields nil; input within the size budget is returned
// as a single chunk. Every chunk after the first starts exactly overlap
// runes before the previous chunk's end.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		if cut := c.cutPoint(runes, start, end); cut > 0 {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
}

// cutPoint returns the rune index just past the last occurrence of the
// highest-priority separator inside the window [start, end), or 0 when no
// separator leaves the next chunk starting strictly after start. The
// progress guard rejects cuts inside the overlap region — accepting one
// would make the splitter loop on the same window forever.
func (c *Chunker) cutPoint(runes []rune, start, end int) int {
	for _, sep := range separators {
		sepRunes := []rune(sep)
		for i := end - len(sepRunes); i >= start; i-- {
			if !matchAt(runes, sepRunes, i) {
				continue
			}
			cut := i + len(sepRunes)
			if cut > start+c.overlap {
				return cut
			}
			// Earlier occurrences are even closer to start; try the
			// next separator instead.
			break
		}
	}
	return 0
}

// matchAt reports whether sep occurs in runes at index i.
func matchAt(runes, sep []rune, i int) bool {
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
