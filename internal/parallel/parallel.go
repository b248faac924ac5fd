// Package parallel provides the parallel_for primitive the core's
// data-parallel components (volume, sdfgrid, mesh) dispatch through.
//
// There is no work-stealing pool here, just a fixed fan-out of
// goroutines over contiguous chunks of [0,n) joined with a
// sync.WaitGroup — the shape is deliberately plain: every caller's
// chunkFn already does the real work, and splitting an outer Z range
// into evenly-sized contiguous chunks gives every worker the same
// amount of work for the uniform grids this module operates on.
package parallel

import (
	"runtime"
	"sync"
)

// Threshold is the candidate-volume size below which callers should run
// sequentially rather than pay goroutine dispatch overhead.
const Threshold = 1000

// For splits [0,n) into contiguous chunks, one per available core, and
// runs chunkFn(lo, hi) for each chunk concurrently, blocking until every
// chunk completes. chunkFn must only touch indices in [lo,hi); distinct
// calls never overlap, so callers with per-voxel-independent writes need
// no further synchronization between chunks.
//
// If n <= 0, chunkFn is never called. For small n, For still splits
// across workers but callers on the hot path should check n against
// Threshold themselves and call chunkFn(0, n) directly below it — that
// decision is the caller's, since only the caller knows what a "voxel"
// costs to process.
func For(n int, chunkFn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		chunkFn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			chunkFn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
