package textprep

import (
	"strings"
	"testing"
)

const samplePaper = `Attention Is Not All You Need

Abstract
This paper revisits attention mechanisms in sequence models.
We show that simpler mixing layers can match them.

Introduction
Sequence modeling has converged on attention-based architectures.
Prior work rarely questions this convergence.

Methods
We replace attention with fixed mixing matrices.
Training follows the standard recipe.

Results
The simplified models reach comparable perplexity.

Conclusion
Attention is one option among several for token mixing.
Future work will study longer contexts.
`

func TestSectionExtractor_Extract(t *testing.T) {
	sections := NewSectionExtractor().Extract(samplePaper)

	for _, label := range []string{SectionAbstract, SectionIntroduction, SectionMethods, SectionResults, SectionConclusion} {
		if _, ok := sections[label]; !ok {
			t.Errorf("expected section %s to be extracted", label)
		}
	}
	if _, ok := sections[SectionDiscussion]; ok {
		t.Error("DISCUSSION should be absent, sample has none")
	}
	if got := sections[SectionAbstract]; !strings.HasPrefix(got, "This paper revisits") {
		t.Errorf("ABSTRACT content = %q", got)
	}
}

func TestSectionExtractor_CaseInsensitive(t *testing.T) {
	text := "ABSTRACT\nshouty papers still have structure.\n\nother text\n"
	sections := NewSectionExtractor().Extract(text)
	if sections[SectionAbstract] != "shouty papers still have structure." {
		t.Errorf("got %q", sections[SectionAbstract])
	}
}

func TestSectionExtractor_FirstMatchWins(t *testing.T) {
	text := "Results\nfirst results block.\n\nfiller\n\nResults\nsecond results block.\n\n"
	sections := NewSectionExtractor().Extract(text)
	if got := sections[SectionResults]; got != "first results block." {
		t.Errorf("expected first occurrence, got %q", got)
	}
}

func TestSectionExtractor_NoStructure(t *testing.T) {
	sections := NewSectionExtractor().Extract("just a flat wall of words with no headings at all")
	if len(sections) != 0 {
		t.Errorf("expected empty map, got %v", sections)
	}
}

func TestSectionExtractor_ConclusionAtEndOfText(t *testing.T) {
	text := "Conclusion\nthe very last words of the paper"
	sections := NewSectionExtractor().Extract(text)
	if sections[SectionConclusion] != "the very last words of the paper" {
		t.Errorf("got %q", sections[SectionConclusion])
	}
}
