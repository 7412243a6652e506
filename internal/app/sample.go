package app

import (
	"math/rand"
	"time"
)

// SourceFunc returns a fresh random source for one sampling call.
type SourceFunc func() rand.Source

func timeSource() rand.Source {
	return rand.NewSource(time.Now().UnixNano())
}

// sampleIDs draws min(n, len(ids)) distinct ids uniformly without replacement
// using a partial Fisher-Yates shuffle. ids is not modified.
func sampleIDs(ids []int64, n int, rnd *rand.Rand) []int64 {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 0 {
		return []int64{}
	}
	pool := make([]int64, len(ids))
	copy(pool, ids)
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
