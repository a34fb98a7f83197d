// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomePermanent = "permanent"
	OutcomeExhausted = "exhausted"
)

var (
	fetchAttemptsTotal    prometheus.Counter
	fetchRetriesTotal     prometheus.Counter
	pagesTotal            *prometheus.CounterVec
	articlesTotal         prometheus.Counter
	sitemapDocumentsTotal prometheus.Counter

	once sync.Once
)

// Init registers the collectors with the default registry.
// Safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvest_fetch_attempts_total",
			Help: "Total HTTP GET attempts issued, retries included.",
		})
		fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvest_fetch_retries_total",
			Help: "Total retry attempts after a retryable failure.",
		})
		pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_pages_total",
			Help: "Total fetch units completed, labeled by outcome.",
		}, []string{"outcome"})
		articlesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvest_articles_total",
			Help: "Total articles extracted and accumulated.",
		})
		sitemapDocumentsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvest_sitemap_documents_total",
			Help: "Total sitemap documents walked.",
		})
	})
}

// RecordFetchAttempt counts one outbound GET attempt.
func RecordFetchAttempt() {
	if fetchAttemptsTotal != nil {
		fetchAttemptsTotal.Inc()
	}
}

// RecordFetchRetry counts one retry after a retryable failure.
func RecordFetchRetry() {
	if fetchRetriesTotal != nil {
		fetchRetriesTotal.Inc()
	}
}

// RecordPage counts one completed fetch unit by outcome.
func RecordPage(outcome string) {
	if pagesTotal != nil {
		pagesTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordArticle counts one extracted article.
func RecordArticle() {
	if articlesTotal != nil {
		articlesTotal.Inc()
	}
}

// RecordSitemapDocument counts one sitemap document processed.
func RecordSitemapDocument() {
	if sitemapDocumentsTotal != nil {
		sitemapDocumentsTotal.Inc()
	}
}
