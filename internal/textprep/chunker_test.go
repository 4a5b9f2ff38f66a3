package textprep

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewChunker_RejectsBadParameters(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-5, 0},
		{100, 100},
		{100, 150},
		{100, -1},
	}
	for _, tc := range cases {
		if _, err := NewChunker(tc.size, tc.overlap); err == nil {
			t.Errorf("NewChunker(%d, %d) should fail", tc.size, tc.overlap)
		}
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk("tiny")
	if len(chunks) != 1 || chunks[0] != "tiny" {
		t.Errorf("got %v", chunks)
	}
}

func TestChunker_Empty(t *testing.T) {
	c, _ := NewChunker(100, 10)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

// Unique text makes chunk positions recoverable, so coverage and overlap can
// be checked from the returned substrings alone.
func uniqueText(n int) string {
	var sb strings.Builder
	for i := 0; sb.Len() < n; i++ {
		fmt.Fprintf(&sb, "w%04d ", i)
	}
	return sb.String()[:n]
}

func TestChunker_CoversInput(t *testing.T) {
	text := uniqueText(2500)
	c, err := NewChunker(400, 50)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	covered := 0
	for i, ch := range chunks {
		pos := strings.Index(text, ch)
		if pos == -1 {
			t.Fatalf("chunk %d is not a substring of the input", i)
		}
		if pos > covered {
			t.Fatalf("gap before chunk %d: starts at %d, covered to %d", i, pos, covered)
		}
		if end := pos + len(ch); end > covered {
			covered = end
		}
	}
	if covered != len(text) {
		t.Errorf("chunks cover %d of %d characters", covered, len(text))
	}
}

func TestChunker_SnapsToSentenceBoundary(t *testing.T) {
	// A period sits 20 chars before the raw window edge, inside the lookback.
	text := strings.Repeat("a", 79) + "." + strings.Repeat("b", 120)
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk(text)
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at the period, got %q", chunks[0])
	}
	if len(chunks[0]) != 80 {
		t.Errorf("first chunk length = %d, want 80", len(chunks[0]))
	}
}

func TestChunker_NewlineBoundaryWhenNoPeriod(t *testing.T) {
	text := strings.Repeat("a", 89) + "\n" + strings.Repeat("b", 120)
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk(text)
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Errorf("first chunk should end at the newline, got %q", chunks[0])
	}
}

func TestChunker_Terminates(t *testing.T) {
	// Periods everywhere force aggressive boundary snapping; the walk must
	// still advance and finish.
	text := strings.Repeat(". ", 5000)
	c, err := NewChunker(120, 100)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if len(chunks) > len(text) {
		t.Errorf("suspiciously many chunks: %d", len(chunks))
	}
}
