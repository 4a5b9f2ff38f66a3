package textprep

import (
	"strings"
	"testing"
)

// stubExtractor returns a fixed section map regardless of input.
type stubExtractor map[string]string

func (s stubExtractor) Extract(string) map[string]string { return s }

func TestBudgeter_ShortTextUnchanged(t *testing.T) {
	b := NewBudgeter(stubExtractor{})
	text := "short unstructured text"
	if got := b.Prepare(text, 1000); got != text {
		t.Errorf("text under budget should pass through, got %q", got)
	}
}

func TestBudgeter_PriorityOrder(t *testing.T) {
	b := NewBudgeter(stubExtractor{
		SectionResults:  "R",
		SectionAbstract: "A",
	})
	out := b.Prepare("ignored", 1000)
	ai := strings.Index(out, "ABSTRACT:")
	ri := strings.Index(out, "RESULTS:")
	if ai != 0 {
		t.Errorf("output should start with ABSTRACT:, got %q", out)
	}
	if ri < ai {
		t.Errorf("RESULTS must come after ABSTRACT: %q", out)
	}
}

func TestBudgeter_BudgetBound(t *testing.T) {
	long := strings.Repeat("x", 5000)
	cases := []struct {
		name      string
		extractor SectionExtractor
	}{
		{"structured", stubExtractor{SectionAbstract: long, SectionMethods: long}},
		{"fallback", stubExtractor{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBudgeter(tc.extractor)
			for _, budget := range []int{100, 500, 1024} {
				out := b.Prepare(long+long, budget)
				if len(out) > budget+len(truncationMarker) {
					t.Errorf("budget %d: output %d exceeds budget+marker", budget, len(out))
				}
			}
		})
	}
}

func TestBudgeter_TruncationStopsFurtherSections(t *testing.T) {
	b := NewBudgeter(stubExtractor{
		SectionAbstract:     strings.Repeat("a", 300),
		SectionIntroduction: "never reached",
	})
	out := b.Prepare("ignored", 100)
	if !strings.Contains(out, truncationMarker) {
		t.Errorf("expected truncation marker in %q", out)
	}
	if strings.Contains(out, "INTRODUCTION:") {
		t.Error("sections after a truncated block must not be emitted")
	}
}

func TestBudgeter_FallbackHeadTail(t *testing.T) {
	head := strings.Repeat("h", 3000)
	tail := strings.Repeat("t", 3000)
	b := NewBudgeter(stubExtractor{})
	out := b.Prepare(head+tail, 1000)
	if !strings.Contains(out, gapMarker) {
		t.Errorf("fallback output should contain gap marker: %q", out[:50])
	}
	if !strings.HasPrefix(out, "hhh") || !strings.HasSuffix(out, "ttt") {
		t.Error("fallback should blend head and tail of the text")
	}
	// 60% of the budget from the head, 40% from the tail.
	parts := strings.Split(out, gapMarker)
	if len(parts) != 2 || len(parts[0]) != 600 || len(parts[1]) != 400 {
		t.Errorf("head/tail split = %d/%d, want 600/400", len(parts[0]), len(parts[1]))
	}
}

// The fallback engages when the extractor found something, but nothing the
// priority order consumes.
func TestBudgeter_EmptyStructuredResultFallsBack(t *testing.T) {
	b := NewBudgeter(stubExtractor{"REFERENCES": "[1] someone, somewhere"})
	text := "plain body"
	if got := b.Prepare(text, 100); got != text {
		t.Errorf("got %q", got)
	}
}
