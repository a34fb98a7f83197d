package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/config"
	"github.com/aturner/newsharvest/internal/metrics"
)

// Runner wires the gate, walker, extractor and sinks into one crawl run.
type Runner struct {
	cfg    config.Config
	client Fetcher
	pauser *Pauser
	logger *zap.Logger
	runID  string
}

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Walked     int
	Candidates int
	Articles   int
	Elapsed    time.Duration
}

// NewRunner builds a Runner. Every log line of the run carries its ID.
func NewRunner(cfg config.Config, client Fetcher, pauser *Pauser, logger *zap.Logger) *Runner {
	runID := uuid.NewString()
	return &Runner{
		cfg:    cfg,
		client: client,
		pauser: pauser,
		logger: logger.With(zap.String("run_id", runID)),
		runID:  runID,
	}
}

// Run executes one crawl: load robots policy (abort on failure), walk the
// sitemaps with an oversampling cap, filter candidates, then fetch and
// extract each one, writing both sinks at the end. No output files exist
// unless the gate loaded.
func (r *Runner) Run(ctx context.Context, limit int) (Summary, error) {
	start := time.Now()
	if limit <= 0 {
		limit = r.cfg.Crawl.MaxArticles
	}

	gate, err := LoadGate(ctx, r.client, r.cfg.Site.BaseURL, r.cfg.Site.ArticlePattern, r.logger)
	if err != nil {
		return Summary{}, fmt.Errorf("load robots policy: %w", err)
	}
	r.logger.Info("robots policy loaded",
		zap.String("site", r.cfg.Site.BaseURL),
		zap.Int("sitemaps", len(gate.Sitemaps())))

	// Walk more URLs than needed; the allow filter discards the rest.
	walkCap := limit * r.cfg.Crawl.Oversample
	walker := NewWalker(r.client, r.pauser, r.logger)
	walked := walker.Walk(ctx, gate.Sitemaps(), walkCap)

	candidates := make([]string, 0, limit)
	for _, u := range walked {
		if !gate.Allowed(u) {
			continue
		}
		candidates = append(candidates, u)
		if len(candidates) == limit {
			break
		}
	}
	r.logger.Info("candidates selected",
		zap.Int("walked", len(walked)),
		zap.Int("candidates", len(candidates)))

	articles := make([]Article, 0, len(candidates))
	for i, u := range candidates {
		if ctx.Err() != nil {
			break
		}
		// Collection and fetching re-check permission independently.
		if !gate.Allowed(u) {
			continue
		}
		r.pauser.Pause(ctx)

		res, err := r.client.Fetch(ctx, u, true)
		if err != nil {
			r.logger.Warn("article fetch failed, skipping",
				zap.String("url", u), zap.Error(err))
			continue
		}

		article := Extract(res.Body, u)
		articles = append(articles, article)
		metrics.RecordArticle()

		title := "(no title)"
		if article.Title != nil {
			title = *article.Title
		}
		r.logger.Info("article processed",
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(candidates))),
			zap.String("title", title))
	}

	if err := WriteJSONL(r.cfg.Output.JSONLPath, articles); err != nil {
		return Summary{}, fmt.Errorf("write jsonl sink: %w", err)
	}
	if err := WriteCSV(r.cfg.Output.CSVPath, articles); err != nil {
		return Summary{}, fmt.Errorf("write csv sink: %w", err)
	}

	return Summary{
		RunID:      r.runID,
		Walked:     len(walked),
		Candidates: len(candidates),
		Articles:   len(articles),
		Elapsed:    time.Since(start),
	}, nil
}
