package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/textprep"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	opts   llm.Options
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.prompt = prompt
	f.opts = opts
	return f.reply, f.err
}

func TestSummarize(t *testing.T) {
	fake := &fakeCompleter{reply: "  1. OBJECTIVE: testing.\n"}
	gen := NewGenerator(fake, textprep.NewBudgeter(textprep.NewSectionExtractor()), 8000, zap.NewNop())

	got, err := gen.Summarize(context.Background(), "A Study of Widgets", "Abstract\n\nWidgets are everywhere.", "llama3")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "1. OBJECTIVE: testing." {
		t.Errorf("reply not trimmed: %q", got)
	}
	if !strings.Contains(fake.prompt, "PAPER TITLE: A Study of Widgets") {
		t.Errorf("prompt missing title:\n%s", fake.prompt)
	}
	if !strings.Contains(fake.prompt, "Widgets are everywhere.") {
		t.Errorf("prompt missing paper content:\n%s", fake.prompt)
	}
	if fake.opts.Model != "llama3" || fake.opts.MaxTokens != 1000 || fake.opts.Temperature != 0.1 {
		t.Errorf("unexpected options: %+v", fake.opts)
	}
}

func TestSummarizeAppliesBudget(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	gen := NewGenerator(fake, textprep.NewBudgeter(textprep.NewSectionExtractor()), 200, zap.NewNop())

	long := strings.Repeat("All work and no play makes for dull papers. ", 100)
	if _, err := gen.Summarize(context.Background(), "t", long, "m"); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(fake.prompt) > len(promptTemplate)+300 {
		t.Errorf("prompt not budgeted, len = %d", len(fake.prompt))
	}
}

func TestSummarizeError(t *testing.T) {
	wantErr := &llm.Error{Kind: llm.KindConnection, Detail: "boom"}
	fake := &fakeCompleter{err: wantErr}
	gen := NewGenerator(fake, textprep.NewBudgeter(textprep.NewSectionExtractor()), 8000, zap.NewNop())

	_, err := gen.Summarize(context.Background(), "t", "text", "m")
	if err == nil {
		t.Fatal("expected error")
	}
	var lerr *llm.Error
	if !errors.As(err, &lerr) || lerr.Kind != llm.KindConnection {
		t.Errorf("error does not wrap the client error: %v", err)
	}
}
