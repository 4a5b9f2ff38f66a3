// Package relevance scores summarized papers against a list of research topics.
package relevance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/models"
)

// DefaultThreshold is the minimum score a paper needs to count as relevant.
const DefaultThreshold = 6.0

const scoreMaxTokens = 300

const fallbackExplanation = "Score based on keyword matching (fallback method)."

const scorePromptTemplate = `You are tasked with evaluating the relevance of a research paper to specific topics.

PAPER TITLE: %s

PAPER SUMMARY:
%s

RESEARCH TOPICS OF INTEREST: %s

Evaluate how relevant this paper is to the specified research topics on a scale of 0-10.
Provide a brief explanation (2-3 sentences) for your rating.

Format your response as:
RELEVANCE_SCORE: [score 0-10]
EXPLANATION: [your brief explanation]`

var (
	scoreRe       = regexp.MustCompile(`RELEVANCE_SCORE:\s*(\d+(?:\.\d+)?)`)
	explanationRe = regexp.MustCompile(`(?s)EXPLANATION:\s*(.*?)(?:\n|\z)`)
)

// Completer is the slice of the LLM client the scorer needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// SummaryFinder retrieves summarized papers to score.
type SummaryFinder interface {
	FindSummarized(ctx context.Context, limit int) ([]models.Paper, error)
}

// Scorer rates papers against research topics through the model service, with
// a keyword-matching fallback when the reply cannot be parsed.
type Scorer struct {
	llm       Completer
	store     SummaryFinder
	threshold float64
	logger    *zap.Logger
}

// NewScorer creates a Scorer. A threshold of 0 falls back to DefaultThreshold.
func NewScorer(completer Completer, store SummaryFinder, threshold float64, logger *zap.Logger) *Scorer {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{llm: completer, store: store, threshold: threshold, logger: logger}
}

// Score rates a single paper against topics. LLM failures and unparsable
// replies both fall back to keyword matching, so Score always produces a
// usable result.
func (s *Scorer) Score(ctx context.Context, title, summary string, topics []string, model string) models.Relevance {
	prompt := fmt.Sprintf(scorePromptTemplate, title, summary, strings.Join(topics, ", "))
	reply, err := s.llm.Complete(ctx, prompt, llm.Options{Model: model, MaxTokens: scoreMaxTokens})
	if err != nil {
		s.logger.Warn("relevance query failed, using keyword fallback",
			zap.String("title", title), zap.Error(err))
		return s.keywordFallback(title, summary, topics)
	}

	scoreMatch := scoreRe.FindStringSubmatch(reply)
	explanationMatch := explanationRe.FindStringSubmatch(reply)
	if scoreMatch == nil || explanationMatch == nil {
		s.logger.Warn("unparsable relevance reply, using keyword fallback",
			zap.String("title", title))
		return s.keywordFallback(title, summary, topics)
	}

	score, err := strconv.ParseFloat(scoreMatch[1], 64)
	if err != nil {
		return s.keywordFallback(title, summary, topics)
	}
	return models.Relevance{
		Score:       score,
		Explanation: strings.TrimSpace(explanationMatch[1]),
		IsRelevant:  score >= s.threshold,
	}
}

// keywordFallback awards 2 points per topic appearing in the title or
// summary, capped at 10.
func (s *Scorer) keywordFallback(title, summary string, topics []string) models.Relevance {
	lowerTitle := strings.ToLower(title)
	lowerSummary := strings.ToLower(summary)

	score := 0.0
	for _, topic := range topics {
		t := strings.ToLower(topic)
		if strings.Contains(lowerTitle, t) || strings.Contains(lowerSummary, t) {
			score += 2
		}
	}
	if score > 10 {
		score = 10
	}
	return models.Relevance{
		Score:       score,
		Explanation: fallbackExplanation,
		IsRelevant:  score >= s.threshold,
	}
}

// FindRelevant scores up to limit summarized papers and returns the relevant
// ones, ordered by descending score. Papers with equal scores keep their
// retrieval order.
func (s *Scorer) FindRelevant(ctx context.Context, topics []string, limit int, model string) ([]models.Paper, error) {
	papers, err := s.store.FindSummarized(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch summarized papers: %w", err)
	}
	if len(papers) == 0 {
		s.logger.Info("no summarized papers to score")
		return nil, nil
	}

	s.logger.Info("scoring papers for relevance",
		zap.Int("count", len(papers)), zap.Strings("topics", topics))

	relevant := make([]models.Paper, 0, len(papers))
	for i := range papers {
		paper := papers[i]
		rel := s.Score(ctx, paper.Title, paper.Summary, topics, model)
		paper.Relevance = &rel

		if rel.IsRelevant {
			relevant = append(relevant, paper)
		}
		s.logger.Debug("scored paper",
			zap.String("paper_id", paper.PaperID),
			zap.Float64("score", rel.Score),
			zap.Bool("relevant", rel.IsRelevant),
		)
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Relevance.Score > relevant[j].Relevance.Score
	})

	s.logger.Info("relevance scoring complete",
		zap.Int("analyzed", len(papers)), zap.Int("relevant", len(relevant)))
	return relevant, nil
}
