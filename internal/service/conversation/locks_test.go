package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counters := map[int64]int{}
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		key := int64(i % 5)
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()
			mu.Lock()
			counters[key]++
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	for key, n := range counters {
		assert.Equal(t, 10, n, "key %d", key)
	}

	km.mu.Lock()
	assert.Empty(t, km.locks, "entries should be reclaimed after the last unlock")
	km.mu.Unlock()
}
