// Package dataframe implements the distributed data frame (§4.7): a
// schema plus a vector of distributed columns sharing row indices, with
// row-wise fill/set and the map/local_map/filter/parallel_map traversals.
package dataframe

import (
	"fmt"

	"github.com/clusterdf/ddf/internal/cell"
	"github.com/clusterdf/ddf/internal/dcolumn"
	"github.com/clusterdf/ddf/internal/kv"
)

// Rower is the per-row visitor used by Map/LocalMap/Filter/ParallelMap.
// Accept is handed the row in place and may mutate it; the return value
// is consulted only by Filter, to decide whether the row survives.
type Rower interface {
	Accept(row *cell.Row) bool
	Clone() Rower
	Join(other Rower)
}

// Frame is a schema plus one distributed column per schema column, all
// sharing the same logical row count.
type Frame struct {
	schema   *cell.Schema
	columns  []*dcolumn.Column
	store    *kv.Store
	nodeID   int
	numNodes int
}

// New builds an empty frame shaped by schema, backed by store.
func New(schema *cell.Schema, store *kv.Store, nodeID, numNodes int) *Frame {
	return &Frame{schema: schema, store: store, nodeID: nodeID, numNodes: numNodes}
}

func (f *Frame) Schema() *cell.Schema { return f.schema }
func (f *Frame) NRows() int           { return f.schema.NRows() }
func (f *Frame) Width() int           { return len(f.columns) }

// AddColumn appends col. Its length must equal the frame's current
// length, or the frame must still be empty (§4.7).
func (f *Frame) AddColumn(col *dcolumn.Column) error {
	if len(f.columns) > 0 && col.Length() != f.NRows() {
		return fmt.Errorf("dataframe: column length %d does not match frame length %d", col.Length(), f.NRows())
	}
	f.columns = append(f.columns, col)
	return nil
}

// AddRow appends one value to every column, consulting row's missing
// bits, and advances the schema's row count (§4.7).
func (f *Frame) AddRow(row *cell.Row) error {
	if row.Width() != len(f.columns) {
		return fmt.Errorf("dataframe: row width %d does not match frame width %d", row.Width(), len(f.columns))
	}
	for i, col := range f.columns {
		if err := col.PushBack(row.Get(i)); err != nil {
			return fmt.Errorf("dataframe: add row, column %d: %w", i, err)
		}
	}
	f.schema.AddRow()
	return nil
}

// Get returns the cell at (col, row).
func (f *Frame) Get(col, row int) (cell.Cell, error) {
	if col < 0 || col >= len(f.columns) {
		return cell.Cell{}, fmt.Errorf("dataframe: column %d out of range [0,%d)", col, len(f.columns))
	}
	return f.columns[col].Get(row)
}

// Set overwrites the cell at (col, row).
func (f *Frame) Set(col, row int, v cell.Cell) error {
	if col < 0 || col >= len(f.columns) {
		return fmt.Errorf("dataframe: column %d out of range [0,%d)", col, len(f.columns))
	}
	return f.columns[col].Set(row, v)
}

// IsMissing reports whether the cell at (col, row) is missing.
func (f *Frame) IsMissing(col, row int) (bool, error) {
	if col < 0 || col >= len(f.columns) {
		return false, fmt.Errorf("dataframe: column %d out of range [0,%d)", col, len(f.columns))
	}
	return f.columns[col].IsMissing(row)
}

func (f *Frame) buildRow(r int) (*cell.Row, error) {
	row := cell.NewRow(f.schema)
	row.SetIdx(r)
	for c := range f.columns {
		v, err := f.columns[c].Get(r)
		if err != nil {
			return nil, fmt.Errorf("dataframe: read row %d, column %d: %w", r, c, err)
		}
		row.Set(c, v)
	}
	return row, nil
}

func (f *Frame) writeBackRow(row *cell.Row) error {
	for c := range f.columns {
		if err := f.columns[c].Set(row.Idx(), row.Get(c)); err != nil {
			return fmt.Errorf("dataframe: write row %d, column %d: %w", row.Idx(), c, err)
		}
	}
	return nil
}

// Map visits every row index in order, invokes rower.Accept, then writes
// back any changes the rower made to the row object (§4.7).
func (f *Frame) Map(rower Rower) error {
	for r := 0; r < f.NRows(); r++ {
		row, err := f.buildRow(r)
		if err != nil {
			return err
		}
		rower.Accept(row)
		if err := f.writeBackRow(row); err != nil {
			return err
		}
	}
	return nil
}

// isLocalRow reports whether row r's owning chunk is home to this node:
// (r / C) mod N == this_node (§4.7/§8), as judged by column 0 — every
// column in a frame shares the same row-to-chunk placement since they
// were all grown by the same PushBack sequence.
func (f *Frame) isLocalRow(r int) bool {
	if len(f.columns) == 0 {
		return false
	}
	return f.columns[0].HomeNode(r) == f.nodeID
}

// LocalMap visits only row indices whose owning chunk is home to this
// node (§4.7) — used to partition traversal work across the cluster by
// chunk rather than by an explicit range split.
func (f *Frame) LocalMap(rower Rower) error {
	for r := 0; r < f.NRows(); r++ {
		if !f.isLocalRow(r) {
			continue
		}
		row, err := f.buildRow(r)
		if err != nil {
			return err
		}
		rower.Accept(row)
		if err := f.writeBackRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Filter produces a new frame with the same schema, containing every row
// for which rower.Accept returned true (§4.7).
func (f *Frame) Filter(rower Rower) (*Frame, error) {
	out := New(cell.NewSchema(schemaTypes(f.schema), nil, nil), f.store, f.nodeID, f.numNodes)
	for _, col := range f.columns {
		newCol, err := dcolumn.New(col.Type(), f.store, f.numNodes)
		if err != nil {
			return nil, fmt.Errorf("dataframe: filter: allocate column: %w", err)
		}
		out.columns = append(out.columns, newCol)
	}

	for r := 0; r < f.NRows(); r++ {
		row, err := f.buildRow(r)
		if err != nil {
			return nil, err
		}
		if rower.Accept(row) {
			if err := out.AddRow(row); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func schemaTypes(s *cell.Schema) []cell.Type {
	types := make([]cell.Type, s.Width())
	for i := range types {
		types[i] = s.Type(i)
	}
	return types
}
