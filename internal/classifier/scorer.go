package classifier

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scorer classifies batches of URLs in parallel.
type Scorer struct {
	model   *Model
	workers int
}

// NewScorer creates a Scorer. workers <= 0 uses GOMAXPROCS.
func NewScorer(m *Model, workers int) *Scorer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scorer{model: m, workers: workers}
}

// ScoreAll classifies every URL and returns results in input order.
// It stops early and returns the context error if ctx is cancelled.
func (s *Scorer) ScoreAll(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.model.ClassifyURL(u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
