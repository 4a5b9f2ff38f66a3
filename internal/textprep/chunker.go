package textprep

import (
	"fmt"
	"strings"
)

// boundaryLookback is how far back from a window edge to search for a
// natural break (sentence-ending period, else newline).
const boundaryLookback = 100

// Chunker splits text into overlapping, boundary-aware character windows.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

// NewChunker creates a chunker. overlap must be smaller than maxChunkSize or
// the walk could fail to advance; that is rejected here rather than degrading
// into a non-terminating loop.
func NewChunker(maxChunkSize, overlap int) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("chunker: max chunk size must be positive, got %d", maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, maxChunkSize)
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlap: overlap}, nil
}

// Chunk walks the text in windows of at most maxChunkSize characters. When a
// window edge falls inside the text, the boundary snaps to just after the
// last period (else newline) found within the trailing lookback region.
// Consecutive chunks share overlap characters.
func (c *Chunker) Chunk(text string) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.maxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			lookBack := boundaryLookback
			if end-start < lookBack {
				lookBack = end - start
			}
			window := text[end-lookBack : end]
			if i := strings.LastIndexByte(window, '.'); i != -1 {
				end = end - lookBack + i + 1
			} else if i := strings.LastIndexByte(window, '\n'); i != -1 {
				end = end - lookBack + i + 1
			}
		}
		chunks = append(chunks, text[start:end])
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// A snapped boundary consumed the whole step; skip the overlap
			// for this window so the walk still advances.
			next = end
		}
		start = next
	}
	return chunks
}
