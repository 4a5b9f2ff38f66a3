// Package store defines the persistence interface for paper records.
package store

import (
	"context"
	"errors"

	"github.com/matome-io/matome/internal/models"
)

// ErrNotFound is returned when an update matched no record. Stages treat it
// as a per-record failure rather than aborting the batch.
var ErrNotFound = errors.New("store: no record matched")

// ExtractionUpdate carries everything the extraction stage persists in one
// write: the extracted text plus bibliographic fields mined from it.
type ExtractionUpdate struct {
	Text     string
	DOI      string
	Keywords string
}

// PaperStore persists paper records and answers the stage-eligibility
// queries. Each stage mutates exactly the field it owns; no operation ever
// removes a record or a previously set field.
type PaperStore interface {
	// FindPendingExtraction returns papers with a source blob but no
	// extracted text yet.
	FindPendingExtraction(ctx context.Context, limit int) ([]models.Paper, error)
	// FindPendingSummary returns papers with extracted text but no summary.
	FindPendingSummary(ctx context.Context, limit int) ([]models.Paper, error)
	// FindExtracted returns papers with extracted text regardless of summary
	// state; used by forced re-summarization.
	FindExtracted(ctx context.Context, limit int) ([]models.Paper, error)
	// FindSummarized returns papers that have a summary, for relevance scoring.
	FindSummarized(ctx context.Context, limit int) ([]models.Paper, error)
	// FindByPaperIDs fetches full records for the given IDs.
	FindByPaperIDs(ctx context.Context, ids []string) ([]models.Paper, error)

	// SetExtractedText records the extraction stage's output.
	SetExtractedText(ctx context.Context, paperID string, update ExtractionUpdate) error
	// SetSummary records the summarization stage's output.
	SetSummary(ctx context.Context, paperID, summary string) error
	// UpsertMetadata inserts or refreshes ingestion metadata for a paper.
	UpsertMetadata(ctx context.Context, paper models.Paper) error

	// CountPapers and CountSummarized report collection sizes for status.
	CountPapers(ctx context.Context) (int64, error)
	CountSummarized(ctx context.Context) (int64, error)

	Close(ctx context.Context) error
}
