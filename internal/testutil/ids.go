package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs returns "<prefix>-1", "<prefix>-2", ... on each call.
//
// Deterministic ids make notification and journal output comparable across
// runs (golden files).
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
