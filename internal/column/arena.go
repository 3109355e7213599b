// Package column implements the local, non-distributed column type named
// by design note §9 ("two independent implementations behind a common
// capability set"): a typed, ordered sequence of cells with a parallel
// missing-bit sequence. It is the in-memory shape the data frame codec
// encodes/decodes, and sourceframe copies a distributed frame's cells
// into it when publishing that frame.
//
// The backing storage is a chain of fixed-capacity arenas rather than one
// reallocated slice, so appending a million cells (scenario 1 in §8) never
// copies already-written data — adapted from pkg/metricstore/buffer.go's
// "append a new link instead of reallocating/copying" chain, with
// sync.Pool reuse of default-capacity arenas for the same reason that
// file gives: avoid GC pressure from the common case. Unlike that file we
// never need to walk the chain backwards (no time-range queries), so the
// chain is kept as a flat slice of arena pointers for O(1) indexed access
// instead of a prev-linked list.
package column

import (
	"sync"

	"github.com/clusterdf/ddf/internal/cell"
)

// ArenaCap is the fixed capacity of one backing arena.
const ArenaCap = 512

type arena struct {
	data    []cell.Cell
	missing []bool
}

var arenaPool = sync.Pool{
	New: func() interface{} {
		return &arena{
			data:    make([]cell.Cell, 0, ArenaCap),
			missing: make([]bool, 0, ArenaCap),
		}
	},
}

func getArena() *arena {
	return arenaPool.Get().(*arena)
}

func putArena(a *arena) {
	a.data = a.data[:0]
	a.missing = a.missing[:0]
	arenaPool.Put(a)
}
