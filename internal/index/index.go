package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"chronicle/internal/fact"
)

// Index maintains, per entity, fact references ordered by transaction time
// and by valid time, both tie-broken by sequence number. It answers range
// queries in O(log n + k) without scanning the full log.
//
// The index owns nothing: it holds references to immutable facts whose only
// authority is the store. It is always derivable from a full log replay
// (RebuildFrom), so losing it is an inconvenience, not corruption.
//
// Thread-safety: guarded by an RWMutex. Readers additionally bound results
// to seq <= watermark captured at query start, which gives snapshot-isolated
// reads against appends that landed between watermark capture and lookup.
type Index struct {
	mu       sync.RWMutex
	entities map[string]*entityIndex
	maxSeq   int64
}

type entityIndex struct {
	byTxn   []*fact.BitemporalFact // sorted by (TransactionTime, Seq)
	byValid []*fact.BitemporalFact // sorted by (ValidTime, Seq)
}

// New creates an empty index.
func New() *Index {
	return &Index{entities: make(map[string]*entityIndex)}
}

// Insert adds a fact to both per-entity orderings.
//
// Transaction times arrive non-decreasing, so the transaction ordering is an
// amortized append. Valid times arrive in any order (retroactive facts), so
// that side pays an O(n) shift in the worst case; rebuild from replay is
// O(n log n) either way.
func (ix *Index) Insert(f *fact.BitemporalFact) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e := ix.entities[f.EntityID]
	if e == nil {
		e = &entityIndex{}
		ix.entities[f.EntityID] = e
	}

	e.byTxn = insertOrdered(e.byTxn, f, fact.DimensionTransaction)
	e.byValid = insertOrdered(e.byValid, f, fact.DimensionValid)

	if f.Seq > ix.maxSeq {
		ix.maxSeq = f.Seq
	}
}

// Watermark returns the highest sequence number the index has seen.
// Capture it once at query start and pass it to every lookup of that query.
func (ix *Index) Watermark() int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.maxSeq
}

// FactsAtOrBefore returns the entity's facts with a coordinate <= t on the
// given dimension and seq <= watermark, ordered by (time, seq).
// Watermark <= 0 means "no bound".
//
// Returns an empty slice for unknown entities.
func (ix *Index) FactsAtOrBefore(entityID string, t time.Time, dim fact.Dimension, watermark int64) []*fact.BitemporalFact {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e := ix.entities[entityID]
	if e == nil {
		return []*fact.BitemporalFact{}
	}

	facts := e.ordering(dim)
	// First position with time > t: everything before it qualifies.
	hi := sort.Search(len(facts), func(i int) bool {
		return facts[i].TimeOn(dim).After(t)
	})

	return filterByWatermark(facts[:hi], watermark)
}

// Range returns the entity's facts within [start, end] on the given
// dimension, bounded by watermark and ordered by (time, seq). Nil bounds
// are open.
func (ix *Index) Range(entityID string, dim fact.Dimension, start, end *time.Time, watermark int64) []*fact.BitemporalFact {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e := ix.entities[entityID]
	if e == nil {
		return []*fact.BitemporalFact{}
	}

	facts := e.ordering(dim)

	lo := 0
	if start != nil {
		lo = sort.Search(len(facts), func(i int) bool {
			return !facts[i].TimeOn(dim).Before(*start)
		})
	}
	hi := len(facts)
	if end != nil {
		hi = sort.Search(len(facts), func(i int) bool {
			return facts[i].TimeOn(dim).After(*end)
		})
	}
	if lo >= hi {
		return []*fact.BitemporalFact{}
	}

	return filterByWatermark(facts[lo:hi], watermark)
}

// Entities returns the distinct entity IDs present in the index, sorted.
func (ix *Index) Entities() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, len(ix.entities))
	for id := range ix.entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of facts indexed for an entity.
func (ix *Index) Len(entityID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e := ix.entities[entityID]
	if e == nil {
		return 0
	}
	return len(e.byTxn)
}

// RebuildFrom clears the index and repopulates it from a replay source,
// typically store.Replay. O(n log n) over the log size.
func (ix *Index) RebuildFrom(ctx context.Context, replay func(context.Context, func(*fact.BitemporalFact) error) error) error {
	ix.mu.Lock()
	ix.entities = make(map[string]*entityIndex)
	ix.maxSeq = 0
	ix.mu.Unlock()

	return replay(ctx, func(f *fact.BitemporalFact) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.Insert(f)
		return nil
	})
}

func (e *entityIndex) ordering(dim fact.Dimension) []*fact.BitemporalFact {
	if dim == fact.DimensionValid {
		return e.byValid
	}
	return e.byTxn
}

// insertOrdered places f into facts keeping (time, seq) order.
func insertOrdered(facts []*fact.BitemporalFact, f *fact.BitemporalFact, dim fact.Dimension) []*fact.BitemporalFact {
	t := f.TimeOn(dim)
	pos := sort.Search(len(facts), func(i int) bool {
		ti := facts[i].TimeOn(dim)
		if !ti.Equal(t) {
			return ti.After(t)
		}
		return facts[i].Seq > f.Seq
	})

	facts = append(facts, nil)
	copy(facts[pos+1:], facts[pos:])
	facts[pos] = f
	return facts
}

// filterByWatermark copies out facts with seq <= watermark. The copy keeps
// results stable while later inserts shift the underlying slices.
func filterByWatermark(facts []*fact.BitemporalFact, watermark int64) []*fact.BitemporalFact {
	out := make([]*fact.BitemporalFact, 0, len(facts))
	for _, f := range facts {
		if watermark > 0 && f.Seq > watermark {
			continue
		}
		out = append(out, f)
	}
	return out
}
