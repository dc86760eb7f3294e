package bptree

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"
)

// hotKeyTracker keeps approximate access counts for recently found keys in a
// mutex-synchronized LRU. It is advisory telemetry: counts are updated outside the node
// latches and never affect tree structure.
type hotKeyTracker[K Key] struct {
	lru *freelru.SyncedLRU[K, uint64]
}

func newHotKeyTracker[K Key](capacity uint32) (*hotKeyTracker[K], error) {
	lru, err := freelru.NewSynced[K, uint64](capacity, hashKey[K])
	if err != nil {
		return nil, err
	}
	return &hotKeyTracker[K]{lru: lru}, nil
}

func hashKey[K Key](key K) uint32 {
	switch k := any(key).(type) {
	case int32:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(k))
		return uint32(xxhash.Sum64(buf[:]))
	case string:
		return uint32(xxhash.Sum64String(k))
	}
	return 0
}

func (h *hotKeyTracker[K]) touch(key K) {
	count, _ := h.lru.Peek(key)
	h.lru.Add(key, count+1)
}

// HotKeys returns the tracked keys, most recently touched last evicted.
// Returns nil when tracking is disabled.
func (t *Tree[K]) HotKeys() []K {
	if t.hotKeys == nil {
		return nil
	}
	return t.hotKeys.lru.Keys()
}

// HotKeyCount returns the recorded access count for key, or 0 if the key has
// not been tracked (or tracking is disabled).
func (t *Tree[K]) HotKeyCount(key K) uint64 {
	if t.hotKeys == nil {
		return 0
	}
	count, _ := t.hotKeys.lru.Peek(key)
	return count
}
