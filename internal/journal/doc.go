// Package journal provides SQLite-backed durable storage for cartsync.
//
// The journal is an append-only log of every step the coordinator takes on a
// mutation: issued, confirmed, rolled back, discarded as stale, rejected,
// declined at the confirmation gate, and summary resyncs. It answers "what
// happened to my cart and in which order" after the fact, and it is what the
// scenario harness compares against golden traces.
//
// The same database holds the bounded compare-products list.
//
// # Ordering
//
// Every entry carries the coordinator's logical seq. Reads are always
// ORDER BY seq ASC, id ASC so repeated reads (and replays of the same
// scenario) return identical sequences. Wall-clock time is recorded for
// humans only and never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package journal
