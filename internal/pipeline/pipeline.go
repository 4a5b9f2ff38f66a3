// Package pipeline drives the enrichment stages over the paper store.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/blob"
	"github.com/matome-io/matome/internal/models"
	"github.com/matome-io/matome/internal/store"
	"github.com/matome-io/matome/internal/textprep"
)

// TextExtractor converts a PDF blob into plain text.
type TextExtractor interface {
	ExtractText(content []byte) (string, error)
}

// Summarizer produces a structured summary for one paper.
type Summarizer interface {
	Summarize(ctx context.Context, title, text, model string) (string, error)
}

// Pipeline runs the extraction and summarization stages. Each stage selects
// its eligible batch, processes records one at a time, and isolates failures
// so one bad record never aborts the batch.
type Pipeline struct {
	store      store.PaperStore
	blobs      blob.Store
	extractor  TextExtractor
	summarizer Summarizer
	logger     *zap.Logger
}

// New creates a Pipeline over the given collaborators.
func New(papers store.PaperStore, blobs blob.Store, extractor TextExtractor, summarizer Summarizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      papers,
		blobs:      blobs,
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger,
	}
}

// runID tags all log lines of one stage batch.
func runID() string {
	return uuid.NewString()[:8]
}

// ExtractTexts processes up to limit papers that have a source blob but no
// extracted text: download the PDF, extract its text, mine bibliographic
// metadata, and persist the result.
func (p *Pipeline) ExtractTexts(ctx context.Context, limit int) (models.StageResult, error) {
	result := models.NewStageResult()

	papers, err := p.store.FindPendingExtraction(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("find papers pending extraction: %w", err)
	}
	if len(papers) == 0 {
		p.logger.Info("no papers pending text extraction")
		return result, nil
	}

	logger := p.logger.With(zap.String("run_id", runID()), zap.String("stage", "extract"))
	logger.Info("extracting texts", zap.Int("count", len(papers)))

	for _, paper := range papers {
		if err := p.extractOne(ctx, paper); err != nil {
			logger.Warn("extraction failed",
				zap.String("paper_id", paper.PaperID), zap.Error(err))
			result.Failed = append(result.Failed, paper.PaperID)
			continue
		}
		logger.Info("extracted text", zap.String("paper_id", paper.PaperID))
		result.Successful = append(result.Successful, paper.PaperID)
	}
	result.Processed = len(papers)
	return result, nil
}

func (p *Pipeline) extractOne(ctx context.Context, paper models.Paper) error {
	content, err := p.blobs.Fetch(ctx, paper.GCSURL)
	if err != nil {
		return fmt.Errorf("fetch blob: %w", err)
	}
	text, err := p.extractor.ExtractText(content)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	meta := textprep.ExtractMetadata(text)
	update := store.ExtractionUpdate{
		Text:     text,
		DOI:      meta.DOI,
		Keywords: meta.Keywords,
	}
	if err := p.store.SetExtractedText(ctx, paper.PaperID, update); err != nil {
		return fmt.Errorf("persist extracted text: %w", err)
	}
	return nil
}

// SummarizePapers processes up to limit papers that have extracted text but
// no summary. With force set, already-summarized papers are redone;
// last write wins.
func (p *Pipeline) SummarizePapers(ctx context.Context, limit int, model string, force bool) (models.StageResult, error) {
	result := models.NewStageResult()

	var (
		papers []models.Paper
		err    error
	)
	if force {
		papers, err = p.store.FindExtracted(ctx, limit)
	} else {
		papers, err = p.store.FindPendingSummary(ctx, limit)
	}
	if err != nil {
		return result, fmt.Errorf("find papers pending summary: %w", err)
	}
	if len(papers) == 0 {
		p.logger.Info("no papers pending summarization")
		return result, nil
	}

	logger := p.logger.With(zap.String("run_id", runID()), zap.String("stage", "summarize"))
	logger.Info("summarizing papers", zap.Int("count", len(papers)), zap.Bool("force", force))

	for _, paper := range papers {
		if err := p.summarizeOne(ctx, paper, model); err != nil {
			logger.Warn("summarization failed",
				zap.String("paper_id", paper.PaperID), zap.Error(err))
			result.Failed = append(result.Failed, paper.PaperID)
			continue
		}
		logger.Info("summarized paper", zap.String("paper_id", paper.PaperID))
		result.Successful = append(result.Successful, paper.PaperID)
	}
	result.Processed = len(papers)
	return result, nil
}

func (p *Pipeline) summarizeOne(ctx context.Context, paper models.Paper, model string) error {
	summary, err := p.summarizer.Summarize(ctx, paper.Title, paper.ExtractedText, model)
	if err != nil {
		return err
	}
	if err := p.store.SetSummary(ctx, paper.PaperID, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	return nil
}

// Run executes the extraction stage followed by the summarization stage and
// returns both results. The second stage runs even when the first had
// failures; the stages share no per-record state.
func (p *Pipeline) Run(ctx context.Context, limit int, model string) (extracted, summarized models.StageResult, err error) {
	extracted, err = p.ExtractTexts(ctx, limit)
	if err != nil {
		return extracted, models.NewStageResult(), err
	}
	summarized, err = p.SummarizePapers(ctx, limit, model, false)
	return extracted, summarized, err
}
