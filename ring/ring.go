// Package ring implements a bounded, lock-free single-producer/single-consumer
// ring buffer. The matching engine uses one instance to publish market events
// without ever blocking on a slow or absent consumer.
package ring

import (
	"runtime"
	"sync/atomic"
)

const cacheLineSize = 64

// paddedCursor holds one atomic index on its own cache line so the
// producer's write cursor and the consumer's read cursor never false-share.
type paddedCursor struct {
	v atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Ring is a bounded SPSC queue of capacity C, C a power of two. Exactly one
// goroutine may call the producer methods (Push, PushSpin) and exactly one
// goroutine may call the consumer methods (TryPop, PopSpin, DrainBatch);
// mixing callers on either side voids the ordering guarantees below.
type Ring[T any] struct {
	buf  []T
	mask uint64

	write paddedCursor
	read  paddedCursor
}

// New creates a ring buffer of the given capacity, which must be a power of
// two greater than 1.
func New[T any](capacity uint64) *Ring[T] {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two greater than 1")
	}
	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: capacity - 1,
	}
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() uint64 {
	return r.mask + 1
}

// Push writes item into the ring. It never blocks: if the ring is full it
// returns false without mutating any state. Only the producer may call Push.
func (r *Ring[T]) Push(item T) bool {
	write := r.write.v.Load()           // relaxed: only the producer mutates write
	read := r.read.v.Load()             // acquire: synchronizes with the consumer's release store
	nextWrite := (write + 1) & r.mask

	if nextWrite == read {
		return false // full: one slot is always kept empty to distinguish full from empty
	}

	r.buf[write&r.mask] = item
	r.write.v.Store(nextWrite) // release: publishes the slot write above to the consumer
	return true
}

// PushSpin retries Push up to maxSpins times, yielding the CPU between
// attempts, before giving up and returning false.
func (r *Ring[T]) PushSpin(item T, maxSpins int) bool {
	for i := 0; i < maxSpins; i++ {
		if r.Push(item) {
			return true
		}
		runtime.Gosched()
	}
	return false
}

// TryPop removes and returns the oldest item in the ring. Only the consumer
// may call TryPop. The zero value and false are returned when the ring is
// empty.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T

	read := r.read.v.Load()   // relaxed: only the consumer mutates read
	write := r.write.v.Load() // acquire: synchronizes with the producer's release store

	if read == write {
		return zero, false
	}

	item := r.buf[read&r.mask]
	r.read.v.Store((read + 1) & r.mask) // release: publishes the freed slot to the producer
	return item, true
}

// PopSpin retries TryPop until it succeeds or maxSpins attempts have been
// made. The first 100 attempts spin tightly; afterward the goroutine yields
// to the scheduler between attempts to avoid burning CPU while idle.
func (r *Ring[T]) PopSpin(maxSpins int) (T, bool) {
	var zero T
	for i := 0; i < maxSpins; i++ {
		if item, ok := r.TryPop(); ok {
			return item, true
		}
		if i > 100 {
			runtime.Gosched()
		}
	}
	return zero, false
}

// DrainBatch pops up to max items in one pass, loading write once and
// publishing read once, instead of paying the TryPop synchronization cost
// per item. Only the consumer may call DrainBatch.
func (r *Ring[T]) DrainBatch(max int) []T {
	read := r.read.v.Load()
	write := r.write.v.Load() // acquire

	// write and read are both kept in [0, capacity) by the mask, so their
	// difference modulo capacity is exactly the number of queued items;
	// unsigned wraparound of (write - read) makes this correct even when
	// write < read.
	available := int((write - read) & r.mask)
	if available == 0 {
		return nil
	}
	if available > max {
		available = max
	}

	batch := make([]T, available)
	cur := read
	for i := 0; i < available; i++ {
		batch[i] = r.buf[cur&r.mask]
		cur++
	}
	r.read.v.Store(cur & r.mask) // release, once for the whole batch

	return batch
}
