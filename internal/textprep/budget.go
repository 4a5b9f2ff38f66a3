package textprep

import (
	"fmt"
	"strings"
)

const (
	// truncationMarker terminates a section block that was cut to fit the budget.
	truncationMarker = "...\n\n"
	// gapMarker joins the head and tail slices in the unstructured fallback.
	gapMarker = "\n\n[...]\n\n"
	// headShare is the fraction of the budget taken from the start of the text
	// in the fallback path; the rest comes from the end.
	headShare = 0.6
)

// Budgeter assembles a bounded prompt body from extracted sections. Output
// stays within the budget plus at most the length of the truncation marker.
type Budgeter struct {
	extractor SectionExtractor
}

// NewBudgeter creates a Budgeter using the given extraction strategy.
func NewBudgeter(extractor SectionExtractor) *Budgeter {
	return &Budgeter{extractor: extractor}
}

// Prepare builds a prompt body of at most maxLen characters (soft: a
// truncated section carries the truncation marker past the limit). Sections
// are consumed in PriorityOrder; when none are found the head/tail fallback
// is used. Raw text already within the budget is returned unchanged on the
// fallback path.
func (b *Budgeter) Prepare(text string, maxLen int) string {
	sections := b.extractor.Extract(text)

	if len(sections) > 0 {
		var sb strings.Builder
		remaining := maxLen
		for _, label := range PriorityOrder {
			content, ok := sections[label]
			if !ok || remaining <= 0 {
				continue
			}
			block := fmt.Sprintf("%s:\n%s\n\n", label, content)
			if len(block) > remaining {
				block = block[:remaining] + truncationMarker
			}
			sb.WriteString(block)
			remaining -= len(block)
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}

	if len(text) <= maxLen {
		return text
	}

	head := int(float64(maxLen) * headShare)
	tail := maxLen - head
	return text[:head] + gapMarker + text[len(text)-tail:]
}
