package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cartsync/internal/cart"
)

// DefaultCompareMax is the number of products that can be compared at once.
const DefaultCompareMax = 3

// ErrCompareFull is returned when adding to a compare list that is already full.
var ErrCompareFull = errors.New("compare list is full")

// CompareList returns the compared product ids in the order they were added.
func (s *Store) CompareList(ctx context.Context) ([]cart.ProductID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id FROM compare_items ORDER BY position ASC, product_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query compare list: %w", err)
	}
	defer rows.Close()

	ids := []cart.ProductID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan compare item: %w", err)
		}
		ids = append(ids, cart.ProductID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compare list: %w", err)
	}
	return ids, nil
}

// ToggleCompare adds id to the compare list, or removes it if already present.
//
// Returns added=true when id was added. Adding to a list that already holds
// max ids fails with ErrCompareFull and changes nothing.
func (s *Store) ToggleCompare(ctx context.Context, id cart.ProductID, max int) (added bool, err error) {
	if max <= 0 {
		max = DefaultCompareMax
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggle compare: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM compare_items WHERE product_id = ?`, string(id))
	if err != nil {
		return false, fmt.Errorf("toggle compare: delete: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle compare: rows affected: %w", err)
	}

	if removed == 0 {
		var count int
		var maxPos int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(MAX(position), 0) FROM compare_items`,
		).Scan(&count, &maxPos); err != nil {
			return false, fmt.Errorf("toggle compare: count: %w", err)
		}
		if count >= max {
			return false, ErrCompareFull
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO compare_items (product_id, position) VALUES (?, ?)`,
			string(id), maxPos+1,
		); err != nil {
			return false, fmt.Errorf("toggle compare: insert: %w", err)
		}
		added = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggle compare: commit: %w", err)
	}
	return added, nil
}

// ClearCompare empties the compare list.
func (s *Store) ClearCompare(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM compare_items`); err != nil {
		return fmt.Errorf("clear compare list: %w", err)
	}
	return nil
}
