package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/cartsync/internal/cart"
)

const selectEntry = `
	SELECT id, seq, product_id, sequence, kind, outcome, quantity, line, request_id, detail, recorded_at
	FROM mutations
`

// ReadAll returns every entry ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, selectEntry+` ORDER BY seq ASC, id ASC`)
}

// ReadProduct returns the entries of one product, in order.
func (s *Store) ReadProduct(ctx context.Context, id cart.ProductID) ([]Entry, error) {
	return s.query(ctx, selectEntry+` WHERE product_id = ? ORDER BY seq ASC, id ASC`, string(id))
}

// ReadOutcome returns the entries with the given outcome, in order.
func (s *Store) ReadOutcome(ctx context.Context, outcome Outcome) ([]Entry, error) {
	return s.query(ctx, selectEntry+` WHERE outcome = ? ORDER BY seq ASC, id ASC`, string(outcome))
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
// Used to resume the coordinator's clock across runs.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM mutations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		productID  string
		outcome    string
		recordedAt string
	)
	err := rows.Scan(
		&e.ID,
		&e.Seq,
		&productID,
		&e.Sequence,
		&e.Kind,
		&outcome,
		&e.Quantity,
		&e.Line,
		&e.RequestID,
		&e.Detail,
		&recordedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan mutation: %w", err)
	}
	e.ProductID = cart.ProductID(productID)
	e.Outcome = Outcome(outcome)
	e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	return e, nil
}
