package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// articleLikeTypes are the JSON-LD @type values whose author field is read.
var articleLikeTypes = map[string]struct{}{
	"Article":              {},
	"NewsArticle":          {},
	"ReportageNewsArticle": {},
	"AnalysisNewsArticle":  {},
	"BlogPosting":          {},
}

// fieldSource is one step in a per-field fallback chain. Chains are
// evaluated in order; the first non-empty result wins.
type fieldSource func(*goquery.Document) string

// Extract parses a fetched HTML body into an Article. It never fails:
// every field degrades to nil (or an empty author list) when no fallback
// in its chain produced a value.
func Extract(body []byte, pageURL string) Article {
	article := Article{URL: pageURL, Authors: []string{}}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return article
	}

	article.Title = firstNonEmpty(doc,
		metaByName("og:title"),
		metaByProperty("og:title"),
		documentTitle)
	article.Description = firstNonEmpty(doc,
		metaByName("description"),
		metaByName("og:description"),
		metaByProperty("og:description"))
	article.PublishedTime = firstNonEmpty(doc,
		metaByName("article:published_time"),
		metaByProperty("article:published_time"))
	article.ModifiedTime = firstNonEmpty(doc,
		metaByName("article:modified_time"),
		metaByProperty("article:modified_time"))
	article.Section = firstNonEmpty(doc,
		metaByName("article:section"),
		metaByProperty("article:section"))
	article.Canonical = firstNonEmpty(doc, canonicalLink)
	article.Authors = extractAuthors(doc)

	return article
}

func firstNonEmpty(doc *goquery.Document, sources ...fieldSource) *string {
	for _, src := range sources {
		if v := strings.TrimSpace(src(doc)); v != "" {
			return &v
		}
	}
	return nil
}

func metaByName(key string) fieldSource {
	return func(doc *goquery.Document) string {
		return doc.Find(fmt.Sprintf(`meta[name=%q]`, key)).First().AttrOr("content", "")
	}
}

func metaByProperty(key string) fieldSource {
	return func(doc *goquery.Document) string {
		return doc.Find(fmt.Sprintf(`meta[property=%q]`, key)).First().AttrOr("content", "")
	}
}

func documentTitle(doc *goquery.Document) string {
	return doc.Find("title").First().Text()
}

// canonicalLink returns the href of the first link element whose rel token
// list contains "canonical". Token match, not substring.
func canonicalLink(doc *goquery.Document) string {
	var href string
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, token := range strings.Fields(s.AttrOr("rel", "")) {
			if strings.EqualFold(token, "canonical") {
				href = s.AttrOr("href", "")
				return false
			}
		}
		return true
	})
	return href
}

// extractAuthors reads author names from embedded JSON-LD blocks, falling
// back to byline text when structured data yields nothing. The result is
// deduplicated and sorted.
func extractAuthors(doc *goquery.Document) []string {
	names := make(map[string]struct{})
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		collectLinkedDataAuthors([]byte(s.Text()), names)
	})
	if len(names) == 0 {
		collectBylineAuthors(doc, names)
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// collectLinkedDataAuthors decodes one JSON-LD block defensively. The
// payload is treated as a tagged union over {single object, object list,
// unrecognized}; a malformed block is skipped, never an error.
func collectLinkedDataAuthors(raw []byte, names map[string]struct{}) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return
	}
	for _, node := range normalizeNodes(decoded) {
		if !isArticleLike(node["@type"]) {
			continue
		}
		for _, name := range authorNames(node["author"]) {
			names[name] = struct{}{}
		}
	}
}

func normalizeNodes(decoded any) []map[string]any {
	switch v := decoded.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		nodes := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				nodes = append(nodes, m)
			}
		}
		return nodes
	default:
		return nil
	}
}

func isArticleLike(v any) bool {
	switch t := v.(type) {
	case string:
		_, ok := articleLikeTypes[t]
		return ok
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if _, found := articleLikeTypes[s]; found {
					return true
				}
			}
		}
	}
	return false
}

func authorNames(v any) []string {
	switch a := v.(type) {
	case map[string]any:
		if name := personName(a); name != "" {
			return []string{name}
		}
	case []any:
		var out []string
		for _, item := range a {
			if m, ok := item.(map[string]any); ok {
				if name := personName(m); name != "" {
					out = append(out, name)
				}
			}
		}
		return out
	}
	return nil
}

func personName(m map[string]any) string {
	name, _ := m["name"].(string)
	return strings.TrimSpace(name)
}

// collectBylineAuthors locates a byline-labeled element and splits its
// visible text into candidate names: everything after the first
// case-insensitive "by ", split on commas and the literal " and ",
// trimmed, kept when 2-80 characters long and free of a copyright mark.
func collectBylineAuthors(doc *goquery.Document, names map[string]struct{}) {
	var byline *goquery.Selection
	doc.Find("[data-testid], [class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsFold(s.AttrOr("data-testid", ""), "byline") ||
			containsFold(s.AttrOr("class", ""), "byline") {
			byline = s
			return false
		}
		return true
	})
	if byline == nil {
		return
	}

	text := byline.Text()
	idx := indexFold(text, "by ")
	if idx < 0 {
		return
	}
	rest := strings.ReplaceAll(text[idx+len("by "):], " and ", ",")
	for _, frag := range strings.Split(rest, ",") {
		frag = strings.TrimSpace(frag)
		n := utf8.RuneCountInString(frag)
		if n < 2 || n > 80 || strings.ContainsRune(frag, '©') {
			continue
		}
		names[frag] = struct{}{}
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// indexFold finds the first case-insensitive occurrence of an ASCII needle.
func indexFold(haystack, needle string) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if strings.EqualFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
