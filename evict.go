package herdcache

// evictOverflow removes least recently used resolved items above bucket capacity, bucket must be locked.
//
// Entries in flight are kept, so a bucket may temporarily hold more items than its capacity.
func (b *bucket[V]) evictOverflow() []storeItem[V] {
	var evicted []storeItem[V]

	for el := b.order.Back(); el != nil && len(b.data) > b.capacity; {
		prev := el.Prev()
		item := el.Value.(*storeItem[V])

		if !item.entry.InFlight() {
			evicted = append(evicted, *item)
			b.remove(el)
		}

		el = prev
	}

	return evicted
}

// notifyEvicted reports evicted items outside of bucket lock.
func (s *BoundedStore[V]) notifyEvicted(evicted []storeItem[V]) {
	if s.onEvict == nil {
		return
	}

	for _, item := range evicted {
		s.onEvict(item.key, item.entry)
	}
}
