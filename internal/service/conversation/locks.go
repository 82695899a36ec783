package conversation

import "sync"

// keyedMutex serializes work per appointment id. Replies for one appointment
// must apply in arrival order; two replies racing on the same JSON snapshot
// would otherwise interleave their read-modify-write cycles.
//
// Entries are reference counted and removed when the last holder unlocks, so
// the map does not grow with the lifetime of the process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*lockEntry)}
}

// Lock blocks until the key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
