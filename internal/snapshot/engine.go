package snapshot

import (
	"sort"
	"time"

	"chronicle/internal/fact"
	"chronicle/internal/index"
)

// Snapshot is an entity's reconstructed field-value map at one coordinate
// on one time dimension.
//
// Snapshots are derived, never canonical: they are always reproducible by
// replaying facts, and a cached snapshot is never authoritative.
type Snapshot struct {
	EntityID  string
	Timestamp time.Time
	Dimension fact.Dimension

	// State maps field name to the winning value. Fields with no
	// qualifying fact are absent, not null.
	State map[string]fact.Value

	// FactCount is the number of facts folded to produce the state.
	FactCount int
}

// Fields returns the state's field names, sorted.
func (s *Snapshot) Fields() []string {
	fields := make([]string, 0, len(s.State))
	for f := range s.State {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Engine reconstructs snapshots from the temporal index. It never mutates
// the index or the log; reconstruction is a read-only fold.
type Engine struct {
	idx *index.Index
}

// NewEngine creates a snapshot engine over a temporal index.
func NewEngine(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// QueryTransactionTime reconstructs what the ledger believed about an
// entity as of transaction time t: per field, the fact with the greatest
// (transaction_time, seq) among those recorded at or before t.
func (e *Engine) QueryTransactionTime(entityID string, t time.Time, watermark int64) *Snapshot {
	facts := e.idx.FactsAtOrBefore(entityID, t, fact.DimensionTransaction, watermark)
	return Fold(entityID, facts, t, fact.DimensionTransaction)
}

// QueryValidTime reconstructs what was true of an entity at valid time t:
// membership is valid_time <= t, and among facts asserting the same valid
// time the greatest (transaction_time, seq) wins - the most recently
// recorded belief about that moment.
func (e *Engine) QueryValidTime(entityID string, t time.Time, watermark int64) *Snapshot {
	facts := e.idx.FactsAtOrBefore(entityID, t, fact.DimensionValid, watermark)
	return Fold(entityID, facts, t, fact.DimensionValid)
}

// Query dispatches on dimension.
func (e *Engine) Query(entityID string, t time.Time, dim fact.Dimension, watermark int64) *Snapshot {
	if dim == fact.DimensionValid {
		return e.QueryValidTime(entityID, t, watermark)
	}
	return e.QueryTransactionTime(entityID, t, watermark)
}

// Fold reduces qualifying facts to a snapshot. Pure: O(k) over the input,
// no side effects. Facts with a coordinate after t on the fold dimension
// are skipped, so callers may pass a wider pre-fetched slice.
func Fold(entityID string, facts []*fact.BitemporalFact, t time.Time, dim fact.Dimension) *Snapshot {
	snap := &Snapshot{
		EntityID:  entityID,
		Timestamp: t.UTC(),
		Dimension: dim,
		State:     make(map[string]fact.Value),
	}

	winners := make(map[string]*fact.BitemporalFact)
	for _, f := range facts {
		if f.TimeOn(dim).After(t) {
			continue
		}
		snap.FactCount++
		if cur, ok := winners[f.FieldName]; !ok || beats(f, cur, dim) {
			winners[f.FieldName] = f
		}
	}

	for field, f := range winners {
		snap.State[field] = f.NewValue
	}
	return snap
}

// beats reports whether a wins over b under the dimension's conflict rule.
//
// Transaction dimension: greatest (transaction_time, seq).
// Valid dimension: greatest valid_time; among equal valid times, greatest
// (transaction_time, seq). The equal-valid-time rule is deliberate: when
// multiple corrections target the same instant, the most recently recorded
// belief wins.
func beats(a, b *fact.BitemporalFact, dim fact.Dimension) bool {
	if dim == fact.DimensionValid {
		if !a.ValidTime.Equal(b.ValidTime) {
			return a.ValidTime.After(b.ValidTime)
		}
	}
	if !a.TransactionTime.Equal(b.TransactionTime) {
		return a.TransactionTime.After(b.TransactionTime)
	}
	return a.Seq > b.Seq
}
