package journal

import (
	"time"

	"github.com/roach88/cartsync/internal/cart"
)

// Outcome is what happened to a mutation at one step of its life.
type Outcome string

const (
	OutcomeIssued       Outcome = "issued"
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeRolledBack   Outcome = "rolled_back"
	OutcomeStale        Outcome = "stale"
	OutcomeRejected     Outcome = "rejected"
	OutcomeDeclined     Outcome = "declined"
	OutcomeResynced     Outcome = "resynced"
	OutcomeResyncFailed Outcome = "resync_failed"
)

// KindSummary is the Kind recorded for resync entries, which have no product.
const KindSummary = "summary"

// Entry is one journal row.
//
// Line holds the canonical JSON of the visible line after the step, or "" if
// the line is absent. Sequence is the per-product mutation sequence; Seq is
// the coordinator-wide logical clock used for ordering.
type Entry struct {
	ID         int64
	Seq        int64
	ProductID  cart.ProductID
	Sequence   int64
	Kind       string
	Outcome    Outcome
	Quantity   int
	Line       string
	RequestID  string
	Detail     string
	RecordedAt time.Time
}
