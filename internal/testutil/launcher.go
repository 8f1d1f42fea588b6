package testutil

import "sync"

// DeferredLauncher records launched remote calls instead of running them.
//
// Tests decide when each call runs, and in which order, which is how
// out-of-order completions are produced deterministically.
//
// Thread-safety: safe for concurrent use.
type DeferredLauncher struct {
	mu    sync.Mutex
	calls []*deferredCall
}

type deferredCall struct {
	fn   func()
	done bool
}

// NewDeferredLauncher creates an empty launcher.
func NewDeferredLauncher() *DeferredLauncher {
	return &DeferredLauncher{}
}

// Launch records fn. It matches the engine's launcher signature.
func (l *DeferredLauncher) Launch(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, &deferredCall{fn: fn})
}

// Pending returns the number of recorded calls that have not run yet.
func (l *DeferredLauncher) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if !c.done {
			n++
		}
	}
	return n
}

// Total returns how many calls were ever launched.
func (l *DeferredLauncher) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// Run executes the i-th launched call (0-based, in launch order).
// Panics if i is out of range or the call already ran: a test asking for a
// call that does not exist is misconfigured.
func (l *DeferredLauncher) Run(i int) {
	l.mu.Lock()
	if i < 0 || i >= len(l.calls) {
		l.mu.Unlock()
		panic("DeferredLauncher: no such call")
	}
	c := l.calls[i]
	if c.done {
		l.mu.Unlock()
		panic("DeferredLauncher: call already ran")
	}
	c.done = true
	l.mu.Unlock()

	c.fn()
}

// RunAll executes every pending call in launch order, including calls
// launched while running.
func (l *DeferredLauncher) RunAll() {
	for {
		l.mu.Lock()
		idx := -1
		for i, c := range l.calls {
			if !c.done {
				idx = i
				break
			}
		}
		l.mu.Unlock()
		if idx < 0 {
			return
		}
		l.Run(idx)
	}
}
