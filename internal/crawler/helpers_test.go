package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/aturner/newsharvest/internal/fetcher"
)

// stubFetcher serves canned bodies keyed by URL and records fetch order.
type stubFetcher struct {
	bodies  map[string]string
	errs    map[string]error
	fetched []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string, _ bool) (*fetcher.Result, error) {
	s.fetched = append(s.fetched, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	body, ok := s.bodies[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: status 404: %w", url, fetcher.ErrPermanentStatus)
	}
	return &fetcher.Result{
		URL:        url,
		StatusCode: http.StatusOK,
		Body:       []byte(body),
	}, nil
}

func instantPauser() *Pauser {
	return NewPauser(0, 0, rand.New(rand.NewSource(1)))
}

func strPtr(s string) *string {
	return &s
}
