package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForCoversEveryIndexExactlyOnce(t *testing.T) {
	const n = 10_000
	var hits [n]int32
	For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d hit %d times, want 1", i, h)
		}
	}
}

func TestForZeroN(t *testing.T) {
	called := false
	For(0, func(lo, hi int) { called = true })
	if called {
		t.Fatal("chunkFn must not be called for n<=0")
	}
}

func TestForSmallN(t *testing.T) {
	var sum int32
	For(3, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&sum, int32(i))
		}
	})
	if sum != 0+1+2 {
		t.Fatalf("sum = %d, want 3", sum)
	}
}
