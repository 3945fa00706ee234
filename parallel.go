package aucell

import (
	"runtime"
	"sync"
)

// parallelRange splits [0, n) into contiguous chunks and calls fn(start, end)
// for each chunk on its own goroutine, returning once every chunk is done.
// workers <= 0 means runtime.NumCPU(); workers == 1 or n <= 1 runs fn inline.
//
// Callers must only write to output slots owned by their [start, end) range.
// With that discipline no synchronization is needed and results are bitwise
// identical for every worker count.
func parallelRange(n, workers int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || n == 1 {
		fn(0, n)
		return
	}
	workers = min(workers, n)

	var wg sync.WaitGroup
	perWorker := (n + workers - 1) / workers

	for w := range workers {
		start := w * perWorker
		if start >= n {
			break
		}
		end := min(start+perWorker, n)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}

	wg.Wait()
}
