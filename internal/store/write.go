package store

import (
	"context"
	"fmt"

	"chronicle/internal/fact"
)

// Append validates a draft, atomically assigns the next sequence number,
// and persists the fact before returning it.
//
// Append fails with a field-level ValidationError when entity_id,
// field_name, new_value, or valid_time is missing. It never rejects based
// on ordering relative to other facts: out-of-order valid time is legal and
// expected - that is what makes a fact retroactive.
//
// A single fact is written in one INSERT, so the log is never left in a
// partially-written state. Append failures are fatal to the caller and
// should be retried at the call site.
func (s *Store) Append(ctx context.Context, d fact.Draft) (*fact.BitemporalFact, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	newKind, newText, err := encodeValue(d.NewValue)
	if err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}

	oldKind, oldText, err := encodeOptionalValue(d.OldValue)
	if err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}

	txnTime := d.TransactionTime
	if txnTime.IsZero() {
		txnTime = s.now()
	}
	txnTime = txnTime.UTC()

	f := &fact.BitemporalFact{
		ID:              s.ids.NewID(),
		EntityID:        d.EntityID,
		FieldName:       d.FieldName,
		OldValue:        d.OldValue,
		NewValue:        d.NewValue,
		TransactionTime: txnTime,
		ValidTime:       d.ValidTime.UTC(),
		Seq:             s.alloc.Next(),
		ActorID:         d.ActorID,
		Reason:          d.Reason,
		EventType:       d.EventType,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts
		(seq, id, entity_id, field_name, old_kind, old_value, new_kind, new_value,
		 transaction_time, valid_time, actor_id, reason, event_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.Seq,
		f.ID,
		f.EntityID,
		f.FieldName,
		oldKind,
		oldText,
		newKind,
		newText,
		timeToNanos(f.TransactionTime),
		timeToNanos(f.ValidTime),
		f.ActorID,
		f.Reason,
		f.EventType,
	)
	if err != nil {
		return nil, fmt.Errorf("append fact: %w", err)
	}

	return f, nil
}
