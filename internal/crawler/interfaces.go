package crawler

import (
	"context"

	"github.com/aturner/newsharvest/internal/fetcher"
)

// Fetcher is the fetch dependency shared by the gate, the walker and the
// runner. A returned error means "skip this URL".
type Fetcher interface {
	Fetch(ctx context.Context, url string, followRedirects bool) (*fetcher.Result, error)
}
