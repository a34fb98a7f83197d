package crawler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/config"
	"github.com/aturner/newsharvest/internal/fetcher"
)

func runnerConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Site: config.SiteConfig{
			BaseURL:        baseURL,
			ArticlePattern: `^/news/articles/[a-z0-9]+$`,
		},
		Crawl: config.CrawlConfig{
			MaxArticles: 2,
			Oversample:  5,
		},
		Output: config.OutputConfig{
			JSONLPath: filepath.Join(dir, "articles.jsonl"),
			CSVPath:   filepath.Join(dir, "articles.csv"),
		},
	}
}

func readJSONL(t *testing.T, path string) []Article {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []Article
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a Article
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		out = append(out, a)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRunAbortsBeforeOutputWhenRobotsFails(t *testing.T) {
	cfg := runnerConfig(t, "https://site.test")
	stub := &stubFetcher{errs: map[string]error{
		"https://site.test/robots.txt": errors.New("unreachable"),
	}}

	runner := NewRunner(cfg, stub, instantPauser(), zap.NewNop())
	_, err := runner.Run(context.Background(), 0)
	require.Error(t, err)

	_, statErr := os.Stat(cfg.Output.JSONLPath)
	require.True(t, os.IsNotExist(statErr), "aborted run must not write output files")
}

func TestRunFiltersFetchesAndWritesSinks(t *testing.T) {
	cfg := runnerConfig(t, "https://site.test")
	articleHTML := func(title string) string {
		return fmt.Sprintf(`<html><head>
<meta property="og:title" content=%q>
<script type="application/ld+json">{"@type":"NewsArticle","author":{"name":"Jane Doe"}}</script>
</head><body></body></html>`, title)
	}
	stub := &stubFetcher{
		bodies: map[string]string{
			"https://site.test/robots.txt": "User-agent: *\nDisallow: /news/articles/blocked9\nSitemap: https://site.test/sitemap.xml\n",
			"https://site.test/sitemap.xml": leafXML(
				"https://site.test/markets/skipme",
				"https://site.test/news/articles/blocked9",
				"https://site.test/news/articles/good1",
				"https://site.test/news/articles/broken2",
				"https://site.test/news/articles/good3"),
			"https://site.test/news/articles/good1": articleHTML("First"),
			"https://site.test/news/articles/good3": articleHTML("Third"),
		},
		errs: map[string]error{
			"https://site.test/news/articles/broken2": errors.New("503 after retries"),
		},
	}

	runner := NewRunner(cfg, stub, instantPauser(), zap.NewNop())
	summary, err := runner.Run(context.Background(), 3)
	require.NoError(t, err)

	require.Equal(t, 3, summary.Candidates, "pattern and robots filtering keep good1, broken2, good3")
	require.Equal(t, 2, summary.Articles, "failed article fetch is skipped, not fatal")

	records := readJSONL(t, cfg.Output.JSONLPath)
	require.Len(t, records, 2)
	require.Equal(t, "https://site.test/news/articles/good1", records[0].URL)
	require.Equal(t, strPtr("First"), records[0].Title)
	require.Equal(t, []string{"Jane Doe"}, records[0].Authors)
	require.Equal(t, "https://site.test/news/articles/good3", records[1].URL)

	_, err = os.Stat(cfg.Output.CSVPath)
	require.NoError(t, err, "csv sink written for non-empty record set")

	require.NotContains(t, stub.fetched, "https://site.test/markets/skipme")
	require.NotContains(t, stub.fetched, "https://site.test/news/articles/blocked9")
}

func TestRunWritesEmptyJSONLWhenNothingSurvives(t *testing.T) {
	cfg := runnerConfig(t, "https://site.test")
	stub := &stubFetcher{bodies: map[string]string{
		"https://site.test/robots.txt":  "User-agent: *\nSitemap: https://site.test/sitemap.xml\n",
		"https://site.test/sitemap.xml": leafXML("https://site.test/markets/only"),
	}}

	runner := NewRunner(cfg, stub, instantPauser(), zap.NewNop())
	summary, err := runner.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, summary.Articles)

	data, err := os.ReadFile(cfg.Output.JSONLPath)
	require.NoError(t, err)
	require.Empty(t, data)

	_, statErr := os.Stat(cfg.Output.CSVPath)
	require.True(t, os.IsNotExist(statErr))
}

// End-to-end against a live test server through the real HTTP client.
func TestRunEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nDisallow: /search\nSitemap: http://%s/sitemap.xml\n", r.Host)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>http://%s/news/articles/abc123</loc></url></urlset>`, r.Host)
	})
	mux.HandleFunc("/news/articles/abc123", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Live Headline"></head><body>
<div data-testid="byline-block">By Jane Doe</div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := runnerConfig(t, srv.URL)
	client := fetcher.New(fetcher.Config{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		BackoffBase: 1.5,
		BackoffUnit: time.Millisecond,
		UserAgents:  []string{"test-agent"},
	}, rand.New(rand.NewSource(5)), zap.NewNop())

	runner := NewRunner(cfg, client, instantPauser(), zap.NewNop())
	summary, err := runner.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Articles)

	records := readJSONL(t, cfg.Output.JSONLPath)
	require.Len(t, records, 1)
	require.Equal(t, strPtr("Live Headline"), records[0].Title)
	require.Equal(t, []string{"Jane Doe"}, records[0].Authors)
}
