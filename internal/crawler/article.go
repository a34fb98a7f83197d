// Package crawler implements the sitemap-driven article harvesting pipeline:
// robots gate, sitemap walker, metadata extractor, sinks and the run loop.
package crawler

// Article is the metadata record extracted from one fetched page.
// Field order here fixes the serialization order in both sinks. Optional
// fields are nil when no extraction fallback produced a value; an empty
// string never stands in for "unknown".
type Article struct {
	URL           string   `json:"url"`
	Canonical     *string  `json:"canonical_url"`
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	PublishedTime *string  `json:"published_time"`
	ModifiedTime  *string  `json:"modified_time"`
	Section       *string  `json:"section"`
	Authors       []string `json:"authors"`
}

// articleCSVHeader mirrors the Article field order.
var articleCSVHeader = []string{
	"url", "canonical_url", "title", "description",
	"published_time", "modified_time", "section", "authors",
}

func (a *Article) csvRow() []string {
	return []string{
		a.URL,
		orEmpty(a.Canonical),
		orEmpty(a.Title),
		orEmpty(a.Description),
		orEmpty(a.PublishedTime),
		orEmpty(a.ModifiedTime),
		orEmpty(a.Section),
		joinAuthors(a.Authors),
	}
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
