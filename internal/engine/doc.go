// Package engine implements the cart MutationCoordinator.
//
// The coordinator turns shopper commands into optimistic changes to the
// visible cart, sends the matching request to the remote cart service, and
// reconciles each result into a confirm or a rollback.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Commands, remote completions and summary results are all events on one
// FIFO queue. Exactly one goroutine (Run, or a host calling Drain) takes
// events off the queue and applies them, so the line store, the per-product
// state and the totals are never touched concurrently. Remote calls run off
// the loop through a Launcher and post their result back as an event.
//
// Per-Product State Machine:
//
//	Idle(confirmed) --command--> Optimistic(confirmed, speculative, seq)
//	Optimistic --command--> Optimistic(confirmed, speculative', seq+1)
//	Optimistic --result(seq == latest)--> Idle(confirmed' or rollback)
//	Optimistic --result(seq < latest)--> unchanged (stale, discarded)
//
// Sequence numbers are per product and only ever grow, so the last issued
// request wins regardless of the order results arrive in. Nothing is
// cancelled; superseded results are ignored.
//
// A journal seq from Clock orders every recorded outcome across products.
package engine
