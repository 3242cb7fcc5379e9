package store

import (
	"context"
	"database/sql"
	"fmt"

	"chronicle/internal/fact"
)

const factColumns = `seq, id, entity_id, field_name, old_kind, old_value,
	new_kind, new_value, transaction_time, valid_time, actor_id, reason, event_type`

// GetHistory returns every fact recorded about an entity, ordered by
// (transaction_time, seq).
//
// Returns an empty slice (not nil, not an error) for unknown entities.
func (s *Store) GetHistory(ctx context.Context, entityID string) ([]*fact.BitemporalFact, error) {
	if entityID == "" {
		return nil, fact.NewValidationError("entity_id", "entity_id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+factColumns+`
		FROM facts
		WHERE entity_id = ?
		ORDER BY transaction_time ASC, seq ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return collectFacts(rows)
}

// ReadFact retrieves a single fact by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadFact(ctx context.Context, id string) (*fact.BitemporalFact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+factColumns+`
		FROM facts
		WHERE id = ?
	`, id)

	f, err := scanFact(row)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Entities returns the distinct entity IDs present in the log, sorted.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT entity_id FROM facts ORDER BY entity_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanFact.
type scanner interface {
	Scan(dest ...any) error
}

func scanFact(sc scanner) (*fact.BitemporalFact, error) {
	var (
		f                  fact.BitemporalFact
		oldKind, oldText   string
		newKind, newText   string
		txnNanos, validNanos int64
	)

	err := sc.Scan(
		&f.Seq,
		&f.ID,
		&f.EntityID,
		&f.FieldName,
		&oldKind,
		&oldText,
		&newKind,
		&newText,
		&txnNanos,
		&validNanos,
		&f.ActorID,
		&f.Reason,
		&f.EventType,
	)
	if err != nil {
		return nil, err
	}

	if f.OldValue, err = decodeOptionalValue(oldKind, oldText); err != nil {
		return nil, fmt.Errorf("fact %s: %w", f.ID, err)
	}
	if f.NewValue, err = decodeValue(newKind, newText); err != nil {
		return nil, fmt.Errorf("fact %s: %w", f.ID, err)
	}
	f.TransactionTime = nanosToTime(txnNanos)
	f.ValidTime = nanosToTime(validNanos)

	return &f, nil
}

func collectFacts(rows *sql.Rows) ([]*fact.BitemporalFact, error) {
	facts := []*fact.BitemporalFact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}
