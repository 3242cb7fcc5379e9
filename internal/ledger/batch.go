package ledger

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"chronicle/internal/timeline"
)

// ReconstructMany runs independent timeline queries concurrently. Queries
// share nothing mutable - each builds its own accumulator - so sharding
// across goroutines is safe; no cross-entity ordering guarantee is made or
// needed.
//
// All queries run against the same watermark captured at entry, so the
// batch sees one consistent log state even while appends continue.
// Results are positional: out[i] corresponds to filtersList[i].
func (l *Ledger) ReconstructMany(ctx context.Context, filtersList []timeline.Filters) ([]*timeline.Timeline, error) {
	// Validate everything up front: malformed filters reject the batch
	// before any fetch.
	for i := range filtersList {
		if err := filtersList[i].Validate(); err != nil {
			return nil, err
		}
	}

	watermark := l.idx.Watermark()
	out := make([]*timeline.Timeline, len(filtersList))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, filters := range filtersList {
		i, filters := i, filters
		if filters.Watermark == 0 {
			filters.Watermark = watermark
		}
		g.Go(func() error {
			tl, err := l.ReconstructTimeline(ctx, filters)
			if err != nil {
				return err
			}
			out[i] = tl
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
