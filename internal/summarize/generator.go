// Package summarize builds structured paper summaries through the model service.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/textprep"
)

// summaryMaxTokens is higher than the client default; summaries need room.
const summaryMaxTokens = 1000

const summaryTemperature = 0.1

const promptTemplate = `You are an AI research assistant tasked with summarizing research papers accurately.

PAPER TITLE: %s

PAPER CONTENT (extracted from key sections):
%s

Please provide a concise summary of this research paper with the following structure:

1. OBJECTIVE: In 1-2 sentences, what is the paper trying to accomplish?
2. METHODS: In 2-3 sentences, what methods or approaches did the authors use?
3. RESULTS: In 2-3 sentences, what were the main findings or results?
4. SIGNIFICANCE: In 1-2 sentences, why does this matter to the field?
5. KEY INSIGHTS: Bullet list of 3-5 key takeaways or insights from the paper.

Keep the total summary under 500 words.`

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Generator turns extracted paper text into a structured summary.
type Generator struct {
	llm      Completer
	budgeter *textprep.Budgeter
	budget   int
	logger   *zap.Logger
}

// NewGenerator creates a Generator. budget caps the characters of paper text
// embedded in the prompt.
func NewGenerator(completer Completer, budgeter *textprep.Budgeter, budget int, logger *zap.Logger) *Generator {
	return &Generator{llm: completer, budgeter: budgeter, budget: budget, logger: logger}
}

// Summarize prepares the paper text within the prompt budget and asks the
// model for a five-part structured summary.
func (g *Generator) Summarize(ctx context.Context, title, text, model string) (string, error) {
	body := g.budgeter.Prepare(text, g.budget)
	g.logger.Debug("prepared text for summarization",
		zap.String("title", title),
		zap.Int("raw_len", len(text)),
		zap.Int("prepared_len", len(body)),
	)

	prompt := fmt.Sprintf(promptTemplate, title, body)
	reply, err := g.llm.Complete(ctx, prompt, llm.Options{
		Model:       model,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", title, err)
	}
	return strings.TrimSpace(reply), nil
}
