// Package models defines core data structures for papers, enrichment stages, and relevance results.
package models

import "time"

// Paper represents a stored paper record. PaperID is the stable external
// identifier (arXiv ID); ExtractedText and Summary are set by the extraction
// and summarization stages and are absent until the stage has run.
type Paper struct {
	PaperID       string     `json:"paper_id" bson:"paper_id"`
	Title         string     `json:"title" bson:"title"`
	GCSURL        string     `json:"gcs_url,omitempty" bson:"gcs_url,omitempty"`
	ExtractedText string     `json:"extracted_text,omitempty" bson:"extracted_text,omitempty"`
	Summary       string     `json:"summary,omitempty" bson:"summary,omitempty"`
	DOI           string     `json:"doi,omitempty" bson:"doi,omitempty"`
	Keywords      string     `json:"keywords,omitempty" bson:"keywords,omitempty"`
	PublishedAt   time.Time  `json:"published_at,omitempty" bson:"published_at,omitempty"`
	Relevance     *Relevance `json:"relevance,omitempty" bson:"-"`
}

// Relevance is the per-query relevance verdict for a paper. It is derived
// fresh from the summary on every query and never persisted.
type Relevance struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	IsRelevant  bool    `json:"is_relevant"`
}

// StageResult reports the outcome of one pipeline stage batch.
type StageResult struct {
	Processed  int      `json:"processed"`
	Successful []string `json:"successful"`
	Failed     []string `json:"failed"`
}

// NewStageResult returns an empty result with non-nil slices so JSON output
// shows [] rather than null.
func NewStageResult() StageResult {
	return StageResult{Successful: []string{}, Failed: []string{}}
}
