// Package textprep prepares raw paper text for LLM consumption: structural
// section extraction, budgeted prompt assembly, and overlapping chunking.
package textprep

import (
	"regexp"
	"strings"
)

// Section labels recognized in academic paper text.
const (
	SectionAbstract     = "ABSTRACT"
	SectionIntroduction = "INTRODUCTION"
	SectionMethods      = "METHODS"
	SectionResults      = "RESULTS"
	SectionDiscussion   = "DISCUSSION"
	SectionConclusion   = "CONCLUSION"
)

// PriorityOrder is the fixed order in which sections are consumed when
// assembling a budgeted prompt. It is distinct from document order.
var PriorityOrder = []string{
	SectionAbstract,
	SectionIntroduction,
	SectionConclusion,
	SectionMethods,
	SectionResults,
	SectionDiscussion,
}

// SectionExtractor locates named structural regions inside raw paper text.
// Implementations never fail; text without recognizable structure yields an
// empty map.
type SectionExtractor interface {
	Extract(text string) map[string]string
}

// headingExtractor finds sections by heading-pattern matching: a
// case-insensitive heading token followed by content running up to a blank
// line or the next heading-like line. First match wins per label.
type headingExtractor struct{}

// NewSectionExtractor returns the default heading-pattern extractor.
func NewSectionExtractor() SectionExtractor {
	return headingExtractor{}
}

// boundary is a blank line or a heading-like line (capitalized word alone on
// a line). The conclusion pattern additionally accepts end of text, since
// conclusions are often the last section before references get cut off.
var sectionPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{SectionAbstract, regexp.MustCompile(`(?is)abstract\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n)`)},
	{SectionIntroduction, regexp.MustCompile(`(?is)(?:introduction|background)\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n)`)},
	{SectionMethods, regexp.MustCompile(`(?is)(?:methods|methodology|experimental setup)\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n)`)},
	{SectionResults, regexp.MustCompile(`(?is)(?:results|findings|evaluation)\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n)`)},
	{SectionDiscussion, regexp.MustCompile(`(?is)(?:discussion)\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n)`)},
	{SectionConclusion, regexp.MustCompile(`(?is)(?:conclusion|conclusions|summary)\s*(.*?)(?:\n\n|\n[A-Z][a-z]+\s*\n|\z)`)},
}

// Extract returns a map from section label to content for every label whose
// heading pattern matches. Repeated headings keep only the first occurrence.
func (headingExtractor) Extract(text string) map[string]string {
	sections := make(map[string]string)
	for _, p := range sectionPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[1])
		if content != "" {
			sections[p.label] = content
		}
	}
	return sections
}
