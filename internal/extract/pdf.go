// Package extract provides plain-text extraction from PDF blobs.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrNoText is returned when a PDF yields no extractable text (scanned
// images, encrypted content). The extraction stage treats it as a per-record
// failure.
var ErrNoText = errors.New("extract: no text in PDF")

// Extractor converts PDF bytes into plain text.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor returns a new Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText extracts text from every page, joined by blank lines. Pages
// that fail to decode are skipped; a PDF where nothing decodes returns
// ErrNoText.
func (e *Extractor) ExtractText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("failed to extract page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text != "" {
			buf.WriteString(text)
			buf.WriteString("\n\n")
		}
	}

	out := buf.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrNoText
	}
	return out, nil
}
