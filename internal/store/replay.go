package store

import (
	"context"
	"fmt"

	"chronicle/internal/fact"
)

// Replay scans the entire log in sequence order, invoking fn for each fact.
// Used to rebuild the temporal index after restart or corruption - the index
// is always derivable from a full replay; the log is the only authority.
//
// Iteration stops on the first error from fn (including context
// cancellation surfaced by fn) and returns it.
func (s *Store) Replay(ctx context.Context, fn func(*fact.BitemporalFact) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+factColumns+`
		FROM facts
		ORDER BY seq ASC
	`)
	if err != nil {
		return fmt.Errorf("replay query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return fmt.Errorf("replay scan: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("replay iterate: %w", err)
	}
	return nil
}

// VerifySequence checks the append-order invariants over the whole log:
// sequence numbers strictly increase and no two facts share one.
// Returns the number of facts verified.
func (s *Store) VerifySequence(ctx context.Context) (int64, error) {
	var count, prev int64
	err := s.Replay(ctx, func(f *fact.BitemporalFact) error {
		if f.Seq <= prev {
			return fmt.Errorf("sequence order violated: seq %d after %d (fact %s)", f.Seq, prev, f.ID)
		}
		prev = f.Seq
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}
