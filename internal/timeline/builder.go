package timeline

import (
	"context"
	"sort"
	"time"

	"chronicle/internal/fact"
	"chronicle/internal/snapshot"
)

// cancelCheckInterval is how many facts a long scan processes between
// cooperative cancellation checks.
const cancelCheckInterval = 256

// Event is one fact on a timeline with its retroactivity classification.
type Event struct {
	Fact *fact.BitemporalFact

	// Retroactive is true when the fact was recorded after its claimed
	// effective time.
	Retroactive bool

	// TimeLag is transaction_time - valid_time for retroactive events,
	// zero otherwise.
	TimeLag time.Duration
}

// Timeline is the ordered projection of an entity's facts, with derived
// snapshots and retroactivity flags. Constructed on demand per query; it
// has no persistence of its own beyond the source facts.
type Timeline struct {
	EntityID   string
	Dimension  fact.Dimension
	FieldNames []string

	// Events sorted by (transaction_time, seq).
	Events []Event

	// Snapshots generated at the filter interval, ordered by timestamp.
	Snapshots []*snapshot.Snapshot

	TotalEvents      int
	RetroactiveCount int

	// Truncated is set when MaxEvents or MaxSnapshots capped the result.
	// Capped results are labeled, never silently incomplete.
	Truncated bool

	// Complete is false when the query deadline or cancellation cut the
	// scan short; Events then holds the partial result accumulated so far.
	Complete bool
}

// Reconstruct builds a timeline from fetched facts. It is a pure transform:
// given a fixed fact slice and filters, repeated calls produce identical
// output. Zero facts produce an empty timeline, not an error.
//
// Cancellation is cooperative: the scan checks ctx every
// cancelCheckInterval facts and on expiry returns the partial timeline with
// Complete=false rather than blocking or allocating unboundedly.
func Reconstruct(ctx context.Context, facts []*fact.BitemporalFact, filters Filters) (*Timeline, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	filters = filters.normalized()

	tl := &Timeline{
		EntityID:   filters.EntityID,
		Dimension:  filters.Dimension,
		FieldNames: []string{},
		Events:     []Event{},
		Complete:   true,
	}

	// Field subset filter, preserving input order.
	selected := make([]*fact.BitemporalFact, 0, len(facts))
	for _, f := range facts {
		if filters.wantsField(f.FieldName) {
			selected = append(selected, f)
		}
	}

	// Events are always presented by (transaction_time, seq) regardless of
	// the query dimension.
	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if !a.TransactionTime.Equal(b.TransactionTime) {
			return a.TransactionTime.Before(b.TransactionTime)
		}
		return a.Seq < b.Seq
	})

	fields := make(map[string]bool)
	for i, f := range selected {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			tl.Complete = false
			break
		}
		if filters.MaxEvents > 0 && len(tl.Events) >= filters.MaxEvents {
			tl.Truncated = true
			break
		}

		ev := Event{
			Fact:        f,
			Retroactive: fact.IsRetroactive(f),
			TimeLag:     fact.TimeLag(f),
		}
		if ev.Retroactive {
			tl.RetroactiveCount++
		}
		tl.Events = append(tl.Events, ev)
		fields[f.FieldName] = true
	}
	tl.TotalEvents = len(tl.Events)

	for name := range fields {
		tl.FieldNames = append(tl.FieldNames, name)
	}
	sort.Strings(tl.FieldNames)

	if filters.SnapshotInterval > 0 && tl.Complete && len(tl.Events) > 0 {
		buildSnapshots(ctx, tl, selected, filters)
	}

	return tl, nil
}

// buildSnapshots generates snapshots at the filter interval across the
// event window on the query dimension. The series is capped at
// MaxSnapshots; exceeding the cap sets Truncated instead of failing.
func buildSnapshots(ctx context.Context, tl *Timeline, facts []*fact.BitemporalFact, filters Filters) {
	first, last := eventWindow(tl.Events, filters.Dimension)

	for t, n := first, 0; !t.After(last); t = t.Add(filters.SnapshotInterval) {
		if n >= filters.MaxSnapshots {
			tl.Truncated = true
			return
		}
		if n%cancelCheckInterval == 0 && ctx.Err() != nil {
			tl.Complete = false
			return
		}
		tl.Snapshots = append(tl.Snapshots, snapshot.Fold(filters.EntityID, facts, t, filters.Dimension))
		n++
	}
}

// eventWindow returns the earliest and latest event coordinates on dim.
func eventWindow(events []Event, dim fact.Dimension) (time.Time, time.Time) {
	first, last := events[0].Fact.TimeOn(dim), events[0].Fact.TimeOn(dim)
	for _, ev := range events[1:] {
		t := ev.Fact.TimeOn(dim)
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return first, last
}
