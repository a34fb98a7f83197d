package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/crawler"
	"github.com/aturner/newsharvest/internal/fetcher"
)

// newCrawlCmd creates the 'crawl' subcommand: one complete run against the
// configured site, bounded by the article limit.
func newCrawlCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl against the configured site",
		Long: `Loads the site's robots.txt, walks the declared sitemaps, fetches the
allowed article pages one at a time with a politeness delay, and writes
the extracted metadata to the configured JSONL and CSV paths.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			svcs, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			logger := svcs.Logger
			defer func() {
				_ = logger.Sync()
			}()

			// One randomness source per run; shared by user-agent rotation,
			// backoff jitter and the politeness delay.
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))

			client := fetcher.New(fetcher.Config{
				Timeout:        svcs.Config.HTTP.Timeout(),
				MaxAttempts:    svcs.Config.HTTP.MaxAttempts,
				BackoffBase:    svcs.Config.HTTP.BackoffBase,
				UserAgents:     svcs.Config.HTTP.UserAgents,
				AcceptLanguage: svcs.Config.HTTP.AcceptLanguage,
			}, rng, logger)

			minDelay, maxDelay := svcs.Config.Crawl.DelayWindow()
			pauser := crawler.NewPauser(minDelay, maxDelay, rng)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := crawler.NewRunner(svcs.Config, client, pauser, logger)
			summary, err := runner.Run(ctx, limit)
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			logger.Info("crawl finished",
				zap.Int("walked", summary.Walked),
				zap.Int("candidates", summary.Candidates),
				zap.Int("articles", summary.Articles),
				zap.Duration("elapsed", summary.Elapsed))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum article count for the run (0 uses the configured default)")
	return cmd
}
