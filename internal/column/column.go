package column

import (
	"fmt"

	"github.com/clusterdf/ddf/internal/cell"
)

// Column is the local (non-distributed) capability set: PushBack, Get,
// Set, IsMissing, Length, Type. Length equals the missing-bit sequence
// length; capacity is always >= length (§3).
type Column struct {
	typ    cell.Type
	length int
	arenas []*arena
}

func New(t cell.Type) *Column {
	return &Column{typ: t}
}

func (c *Column) Type() cell.Type { return c.typ }
func (c *Column) Length() int     { return c.length }

func (c *Column) locate(i int) (*arena, int) {
	return c.arenas[i/ArenaCap], i % ArenaCap
}

// Get returns the cell at index i. Panics if i is out of range — the
// defensive re-implementation called for in §7's "out-of-bounds column
// access" disposition lives one layer up, in dcolumn and dataframe, which
// are the only callers with enough context to return a proper error
// instead of trusting the caller.
func (c *Column) Get(i int) cell.Cell {
	a, off := c.locate(i)
	if a.missing[off] {
		return cell.NewMissing(c.typ)
	}
	return a.data[off]
}

func (c *Column) IsMissing(i int) bool {
	a, off := c.locate(i)
	return a.missing[off]
}

// Set overwrites the cell at index i < Length. Per design note §9's
// resolved open question, this clears the missing bit whenever v is not
// itself a missing cell, and sets it when v is missing.
func (c *Column) Set(i int, v cell.Cell) {
	a, off := c.locate(i)
	if v.IsMissing() {
		a.missing[off] = true
		a.data[off] = cell.NewMissing(c.typ)
	} else {
		a.missing[off] = false
		a.data[off] = v
	}
}

// PushBack appends one cell, growing the arena chain as needed.
func (c *Column) PushBack(v cell.Cell) {
	if c.length%ArenaCap == 0 {
		c.arenas = append(c.arenas, getArena())
	}
	a := c.arenas[len(c.arenas)-1]
	if v.IsMissing() {
		a.data = append(a.data, cell.NewMissing(c.typ))
		a.missing = append(a.missing, true)
	} else {
		a.data = append(a.data, v)
		a.missing = append(a.missing, false)
	}
	c.length++
}

// Release returns every backing arena to the shared pool. The Column must
// not be used afterwards. A caller that builds a short-lived Column can
// call this once it has copied the cells out.
func (c *Column) Release() {
	for _, a := range c.arenas {
		putArena(a)
	}
	c.arenas = nil
	c.length = 0
}

// Cells returns a copy of every cell in order — used by the data frame
// codec to serialize a local column and by tests.
func (c *Column) Cells() []cell.Cell {
	out := make([]cell.Cell, c.length)
	for i := range out {
		out[i] = c.Get(i)
	}
	return out
}

func (c *Column) String() string {
	return fmt.Sprintf("Column{type=%v, length=%d}", c.typ, c.length)
}
