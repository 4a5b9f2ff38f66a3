package textprep

import (
	"regexp"
	"strings"
)

// Metadata holds bibliographic fields mined from the front matter of a paper.
// Absent fields are empty strings.
type Metadata struct {
	Authors  string
	Year     string
	DOI      string
	Keywords string
}

// headerWindow bounds how far into the text author and year patterns are
// searched; both live in the front matter.
const headerWindow = 1000

var (
	authorsRe  = regexp.MustCompile(`\n((?:[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,?\s+)+)(?:\n|$)`)
	yearRe     = regexp.MustCompile(`(?:^|\s)(\d{4})(?:\s|$)`)
	doiRe      = regexp.MustCompile(`(?i)(?:doi):\s*(10\.\d+/\S+)`)
	keywordsRe = regexp.MustCompile(`(?is)(?:keywords|index terms):\s*(.*?)(?:\n\n|\.\z)`)

	referencesRe  = regexp.MustCompile(`(?is)(?:references|bibliography)\s*(.*?)(?:\z|\n\n\n)`)
	numberedRefRe = regexp.MustCompile(`\n\s*\[\d+\]`)
	authorYearRe  = regexp.MustCompile(`(?m)^[A-Z][a-z]+(?: and |, | et al\., )[A-Za-z, ]+\d{4}\..*$`)
)

// ExtractMetadata mines authors, year, DOI, and keywords from raw paper text.
func ExtractMetadata(text string) Metadata {
	var meta Metadata

	header := text
	if len(header) > headerWindow {
		header = header[:headerWindow]
	}
	if m := authorsRe.FindStringSubmatch(header); m != nil {
		meta.Authors = strings.TrimSpace(m[1])
	}
	if m := yearRe.FindStringSubmatch(header); m != nil {
		meta.Year = m[1]
	}
	if m := doiRe.FindStringSubmatch(text); m != nil {
		meta.DOI = m[1]
	}
	if m := keywordsRe.FindStringSubmatch(text); m != nil {
		meta.Keywords = strings.TrimSpace(m[1])
	}
	return meta
}

// ExtractReferences returns the individual entries of the references section,
// or nil when no references section is found. Numbered entries ([1], [2], …)
// are tried first, then author-year entries.
func ExtractReferences(text string) []string {
	m := referencesRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	body := "\n" + m[1]

	marks := numberedRefRe.FindAllStringIndex(body, -1)
	if len(marks) > 0 {
		refs := make([]string, 0, len(marks))
		for i, mark := range marks {
			start := mark[1]
			end := len(body)
			if i+1 < len(marks) {
				end = marks[i+1][0]
			}
			if ref := strings.TrimSpace(body[start:end]); ref != "" {
				refs = append(refs, ref)
			}
		}
		return refs
	}

	var refs []string
	for _, line := range authorYearRe.FindAllString(body, -1) {
		refs = append(refs, strings.TrimSpace(line))
	}
	return refs
}
