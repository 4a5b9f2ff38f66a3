package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner executes the full pipeline on a fixed interval. The first run fires
// immediately on Start.
type Runner struct {
	pipeline *Pipeline
	interval time.Duration
	limit    int
	model    string
	logger   *zap.Logger
}

// NewRunner creates a Runner over an already-constructed Pipeline.
func NewRunner(p *Pipeline, interval time.Duration, limit int, model string, logger *zap.Logger) *Runner {
	return &Runner{pipeline: p, interval: interval, limit: limit, model: model, logger: logger}
}

// Start blocks, running the pipeline until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("pipeline runner stopping")
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := time.Now()
	extracted, summarized, err := r.pipeline.Run(ctx, r.limit, r.model)
	if err != nil {
		r.logger.Error("pipeline run failed", zap.Error(err))
		return
	}
	r.logger.Info("pipeline run complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("extracted", len(extracted.Successful)),
		zap.Int("extract_failures", len(extracted.Failed)),
		zap.Int("summarized", len(summarized.Successful)),
		zap.Int("summary_failures", len(summarized.Failed)),
	)
}
