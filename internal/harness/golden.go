package harness

import (
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"chronicle/internal/fact"
	"chronicle/internal/timeline"
)

// RunWithGolden executes a scenario and compares its golden timeline's
// JSON export against a golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected timeline output:
// event ordering, retroactivity classification, and export formatting are
// all locked down at once.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	if scenario.Golden == nil {
		return fmt.Errorf("scenario %s has no golden spec", scenario.Name)
	}

	l, closeLedger, err := RunTimeline(scenario)
	if err != nil {
		return err
	}
	defer closeLedger()

	filters := timeline.Filters{EntityID: scenario.Golden.Entity}
	if scenario.Golden.Dimension != "" {
		dim, err := fact.ParseDimension(scenario.Golden.Dimension)
		if err != nil {
			return err
		}
		filters.Dimension = dim
	}

	tl, err := l.ReconstructTimeline(context.Background(), filters)
	if err != nil {
		return err
	}
	data, err := timeline.ExportJSON(tl)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
