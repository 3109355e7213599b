package dataframe

import (
	"fmt"
	"sync"
)

// ParallelMap clones rower once per worker, splits the row range into
// contiguous partitions, and runs each partition on its own goroutine.
// Partial rowers are joined back together once every worker has
// finished, with the original rower merged last (§4.7) — a fixed worker
// pool rather than golang.org/x/sync/errgroup, since the join step needs
// the ordered, user-supplied merge rather than simple error aggregation.
// Row reads and write-backs are serialized across workers, because a
// distributed column's chunk cache and its read-modify-write of a whole
// chunk are not safe for concurrent use; only Accept runs in parallel.
func (f *Frame) ParallelMap(rower Rower, workers int) error {
	if workers < 1 {
		workers = 1
	}
	nrows := f.NRows()
	if nrows == 0 {
		return nil
	}
	if workers > nrows {
		workers = nrows
	}

	clones := make([]Rower, workers)
	for i := range clones {
		clones[i] = rower.Clone()
	}

	errs := make([]error, workers)
	var colMu sync.Mutex
	var wg sync.WaitGroup
	chunk := (nrows + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > nrows {
			end = nrows
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			for r := start; r < end; r++ {
				colMu.Lock()
				row, err := f.buildRow(r)
				colMu.Unlock()
				if err != nil {
					errs[w] = err
					return
				}
				clones[w].Accept(row)
				colMu.Lock()
				err = f.writeBackRow(row)
				colMu.Unlock()
				if err != nil {
					errs[w] = err
					return
				}
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("dataframe: parallel map: %w", err)
		}
	}

	merged := clones[0]
	for i := 1; i < len(clones); i++ {
		merged.Join(clones[i])
	}
	rower.Join(merged)
	return nil
}
