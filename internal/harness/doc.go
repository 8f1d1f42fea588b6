// Package harness replays cart scenarios against the real coordinator.
//
// A scenario seeds a confirmed cart, scripts the server's answers, then
// walks through steps: shopper commands, completion of individual remote
// calls (in any order), clock advances and resyncs. Remote calls are held by
// a deferred launcher, so races such as "the older request answers last"
// are written down explicitly and replay identically every run.
//
// Each run uses a fresh in-memory journal; the journal becomes the trace
// used by assertions and golden files.
package harness
