package herdcache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	maxShards     = 64
	shardCapacity = 1024
)

type storeItem[V any] struct {
	key   string
	entry *Entry[V]
}

type bucket[V any] struct {
	sync.Mutex
	capacity int
	data     map[string]*list.Element
	order    *list.List // Front is the most recently used item.
}

// BoundedStore is a capacity bounded concurrent map of cache entries with LRU eviction.
//
// Keys are distributed over shards, every shard has its own lock and recency order.
// Entries in flight are never evicted, capacity may be exceeded by the number of pending computations.
type BoundedStore[V any] struct {
	buckets []bucket[V]
	onEvict func(key string, e *Entry[V])
}

// NewBoundedStore creates a store for up to maxCapacity entries.
//
// Optional onEvict is called for every entry removed due to capacity pressure.
func NewBoundedStore[V any](maxCapacity, initialCapacity int, onEvict func(key string, e *Entry[V])) (*BoundedStore[V], error) {
	if maxCapacity <= 0 {
		return nil, fmt.Errorf("%w: max capacity must be greater than 0, %d given", ErrInvalidConfig, maxCapacity)
	}

	shards := maxCapacity / shardCapacity
	if shards < 1 {
		shards = 1
	}

	if shards > maxShards {
		shards = maxShards
	}

	s := &BoundedStore[V]{
		buckets: make([]bucket[V], shards),
		onEvict: onEvict,
	}

	for i := range s.buckets {
		b := &s.buckets[i]
		b.capacity = maxCapacity / shards

		if i < maxCapacity%shards {
			b.capacity++
		}

		b.data = make(map[string]*list.Element, initialCapacity/shards)
		b.order = list.New()
	}

	return s, nil
}

func (s *BoundedStore[V]) bucket(key string) *bucket[V] {
	if len(s.buckets) == 1 {
		return &s.buckets[0]
	}

	return &s.buckets[xxhash.Sum64String(key)%uint64(len(s.buckets))]
}

// Get returns entry and marks it as recently used.
func (s *BoundedStore[V]) Get(key string) (*Entry[V], bool) {
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	el, found := b.data[key]
	if !found {
		return nil, false
	}

	b.order.MoveToFront(el)

	return el.Value.(*storeItem[V]).entry, true
}

// Peek returns entry without affecting recency.
func (s *BoundedStore[V]) Peek(key string) (*Entry[V], bool) {
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	el, found := b.data[key]
	if !found {
		return nil, false
	}

	return el.Value.(*storeItem[V]).entry, true
}

// PutIfAbsent stores entry if key is missing.
//
// If key is occupied, current entry is returned with loaded set to true.
func (s *BoundedStore[V]) PutIfAbsent(key string, e *Entry[V]) (actual *Entry[V], loaded bool) {
	b := s.bucket(key)

	b.Lock()

	if el, found := b.data[key]; found {
		b.order.MoveToFront(el)
		b.Unlock()

		return el.Value.(*storeItem[V]).entry, true
	}

	b.data[key] = b.order.PushFront(&storeItem[V]{key: key, entry: e})
	evicted := b.evictOverflow()

	b.Unlock()

	s.notifyEvicted(evicted)

	return e, false
}

// CompareAndSwap replaces entry if key is still occupied by old.
func (s *BoundedStore[V]) CompareAndSwap(key string, old, e *Entry[V]) bool {
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	el, found := b.data[key]
	if !found {
		return false
	}

	item := el.Value.(*storeItem[V])
	if item.entry != old {
		return false
	}

	item.entry = e
	b.order.MoveToFront(el)

	return true
}

// CompareAndDelete removes entry if key is still occupied by old.
func (s *BoundedStore[V]) CompareAndDelete(key string, old *Entry[V]) bool {
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	el, found := b.data[key]
	if !found || el.Value.(*storeItem[V]).entry != old {
		return false
	}

	b.remove(el)

	return true
}

// Delete removes entry by key.
func (s *BoundedStore[V]) Delete(key string) bool {
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	el, found := b.data[key]
	if !found {
		return false
	}

	b.remove(el)

	return true
}

// DeleteAll removes all entries and returns their count.
func (s *BoundedStore[V]) DeleteAll() int {
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		cnt += len(b.data)
		b.data = make(map[string]*list.Element, len(b.data))
		b.order.Init()
		b.Unlock()
	}

	return cnt
}

// Range calls f for every entry in recency order of each shard, until f returns false.
//
// Shard lock is not held while f is called, so f can modify the store.
func (s *BoundedStore[V]) Range(f func(key string, e *Entry[V]) bool) {
	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		items := make([]storeItem[V], 0, len(b.data))

		for el := b.order.Front(); el != nil; el = el.Next() {
			items = append(items, *el.Value.(*storeItem[V]))
		}
		b.Unlock()

		for _, item := range items {
			if !f(item.key, item.entry) {
				return
			}
		}
	}
}

// Len returns number of entries.
func (s *BoundedStore[V]) Len() int {
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		cnt += len(b.data)
		b.Unlock()
	}

	return cnt
}

// Capacity returns maximum number of entries.
func (s *BoundedStore[V]) Capacity() int {
	c := 0

	for i := range s.buckets {
		c += s.buckets[i].capacity
	}

	return c
}

func (b *bucket[V]) remove(el *list.Element) {
	delete(b.data, el.Value.(*storeItem[V]).key)
	b.order.Remove(el)
}
