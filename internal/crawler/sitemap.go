package crawler

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/metrics"
)

type locKind int

const (
	locChildSitemap locKind = iota
	locPageURL
)

// sitemapEntry is one <loc> found in a sitemap document, tagged by the
// element that encloses it. Index and leaf shapes may co-occur in one
// document, so both kinds can come out of a single parse.
type sitemapEntry struct {
	kind locKind
	loc  string
}

// Walker traverses sitemap documents breadth-first, yielding page URLs.
type Walker struct {
	client Fetcher
	pauser *Pauser
	logger *zap.Logger
}

// NewWalker builds a Walker.
func NewWalker(client Fetcher, pauser *Pauser, logger *zap.Logger) *Walker {
	return &Walker{client: client, pauser: pauser, logger: logger}
}

// Walk traverses sitemaps from seeds and returns up to limit distinct page
// URLs. A single visited-set covers sitemap documents and page URLs alike,
// so nothing is ever fetched or yielded twice. The walk stops the moment
// limit is reached, mid-document included. A failed sitemap fetch is
// logged and skipped, never fatal.
func (w *Walker) Walk(ctx context.Context, seeds []string, limit int) []string {
	seen := make(map[string]struct{}, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		queue = append(queue, s)
	}

	var pages []string
	for len(queue) > 0 && len(pages) < limit {
		if ctx.Err() != nil {
			break
		}
		doc := queue[0]
		queue = queue[1:]

		res, err := w.client.Fetch(ctx, doc, true)
		w.pauser.Pause(ctx) // after every fetch attempt, success or not
		if err != nil {
			w.logger.Warn("sitemap fetch failed, skipping",
				zap.String("url", doc), zap.Error(err))
			continue
		}
		metrics.RecordSitemapDocument()

		for _, entry := range parseSitemapEntries(res.Body) {
			if _, ok := seen[entry.loc]; ok {
				continue
			}
			seen[entry.loc] = struct{}{}
			switch entry.kind {
			case locChildSitemap:
				queue = append(queue, entry.loc)
			case locPageURL:
				pages = append(pages, entry.loc)
				if len(pages) == limit {
					return pages
				}
			}
		}
	}
	return pages
}

// parseSitemapEntries extracts <loc> values in document order. A strict
// parse is tried first; malformed XML gets one lenient retry. If both
// fail, the document yields nothing.
func parseSitemapEntries(body []byte) []sitemapEntry {
	entries, err := scanLocs(body, true)
	if err == nil {
		return entries
	}
	entries, err = scanLocs(body, false)
	if err != nil {
		return nil
	}
	return entries
}

func scanLocs(body []byte, strict bool) ([]sitemapEntry, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	if !strict {
		dec.Strict = false
		dec.AutoClose = xml.HTMLAutoClose
	}

	var (
		entries []sitemapEntry
		stack   []string
		inLoc   bool
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			stack = append(stack, name)
			if name == "loc" {
				inLoc = true
				text.Reset()
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			if name == "loc" && inLoc {
				inLoc = false
				loc := strings.TrimSpace(text.String())
				parent := ""
				if len(stack) >= 2 {
					parent = stack[len(stack)-2]
				}
				if loc != "" {
					switch parent {
					case "sitemap":
						entries = append(entries, sitemapEntry{kind: locChildSitemap, loc: loc})
					case "url":
						entries = append(entries, sitemapEntry{kind: locPageURL, loc: loc})
					}
				}
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if inLoc {
				text.Write(t)
			}
		}
	}
	return entries, nil
}
