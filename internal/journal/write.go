package journal

import (
	"context"
	"fmt"
	"time"
)

// Record appends an entry. A zero RecordedAt is stamped with the current time.
//
// Seq must be unique; recording the same seq twice fails, which catches a
// coordinator clock that was not resumed from LastSeq.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations
		(seq, product_id, sequence, kind, outcome, quantity, line, request_id, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		string(e.ProductID),
		e.Sequence,
		e.Kind,
		string(e.Outcome),
		e.Quantity,
		e.Line,
		e.RequestID,
		e.Detail,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s %s seq=%d: %w", e.Kind, e.Outcome, e.Seq, err)
	}
	return nil
}
