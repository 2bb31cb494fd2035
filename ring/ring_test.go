package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushTryPopFIFO(t *testing.T) {
	r := New[int](8)

	for i := 0; i < 5; i++ {
		require.True(t, r.Push(i))
	}

	for i := 0; i < 5; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	_, ok := r.TryPop()
	require.False(t, ok, "expected empty ring after draining everything pushed")
}

func TestPushFailsAtCapacityMinusOne(t *testing.T) {
	r := New[int](4) // usable capacity is 3: one slot is always kept empty

	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	require.True(t, r.Push(3))
	require.False(t, r.Push(4), "ring should report full at capacity-1 items with no pops")
}

func TestTryPopOnEmptyRingReturnsFalse(t *testing.T) {
	r := New[string](16)
	v, ok := r.TryPop()
	require.False(t, ok)
	require.Equal(t, "", v)
}

func TestDrainBatchRespectsMaxAndOrder(t *testing.T) {
	r := New[int](16)
	for i := 0; i < 10; i++ {
		require.True(t, r.Push(i))
	}

	batch := r.DrainBatch(4)
	require.Equal(t, []int{0, 1, 2, 3}, batch)

	rest := r.DrainBatch(100)
	require.Equal(t, []int{4, 5, 6, 7, 8, 9}, rest)

	require.Nil(t, r.DrainBatch(10), "draining an empty ring should yield nothing")
}

func TestPushSpinGivesUpAfterMaxSpins(t *testing.T) {
	r := New[int](2) // usable capacity 1
	require.True(t, r.Push(1))

	ok := r.PushSpin(2, 10)
	require.False(t, ok, "PushSpin must give up once the ring stays full")
}

func TestPopSpinSucceedsOncePublished(t *testing.T) {
	r := New[int](4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		v, ok := r.PopSpin(1_000_000)
		require.True(t, ok)
		require.Equal(t, 42, v)
	}()

	require.True(t, r.Push(42))
	<-done
}

// TestSPSCInterleavingPreservesOrder exercises a single producer and single
// consumer racing concurrently and asserts the consumer observes exactly the
// producer's sequence, in order, without duplication or loss.
func TestSPSCInterleavingPreservesOrder(t *testing.T) {
	const n = 200_000
	r := New[int](1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.Push(i) {
				// spin: consumer will keep draining
			}
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			batch := r.DrainBatch(256)
			got = append(got, batch...)
		}
	}()

	wg.Wait()

	require.Len(t, got, n)
	for i, v := range got {
		require.Equal(t, i, v, "events must be observed in producer order with no duplication")
	}
}
