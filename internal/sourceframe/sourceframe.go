// Package sourceframe implements the "constructors from sources" factories
// named by §4.8: build a one-column distributed frame from a contiguous
// typed array or a single scalar, publish it to the KV store under a
// caller-supplied key, and return it. A Writer-driven factory appends
// rows produced by an external collaborator until it reports completion.
package sourceframe

import (
	"fmt"

	"github.com/clusterdf/ddf/internal/cell"
	"github.com/clusterdf/ddf/internal/codec"
	"github.com/clusterdf/ddf/internal/column"
	"github.com/clusterdf/ddf/internal/dataframe"
	"github.com/clusterdf/ddf/internal/dcolumn"
	"github.com/clusterdf/ddf/internal/kv"
)

// Writer produces one row at a time until exhausted — the abstraction
// FromWriter expects an external schema-on-read reader to implement
// (supplemented from original_source/src/client/sorer.h; the reader
// itself stays out of this module's scope per the Non-goals).
type Writer interface {
	Schema() *cell.Schema
	Next() (row *cell.Row, ok bool)
}

func newSingleColumnFrame(t cell.Type, store *kv.Store, nodeID, numNodes int) (*dataframe.Frame, error) {
	schema := cell.NewSchema([]cell.Type{t}, nil, nil)
	frame := dataframe.New(schema, store, nodeID, numNodes)
	col, err := dcolumn.New(t, store, numNodes)
	if err != nil {
		return nil, fmt.Errorf("sourceframe: allocate column: %w", err)
	}
	if err := frame.AddColumn(col); err != nil {
		return nil, fmt.Errorf("sourceframe: add column: %w", err)
	}
	return frame, nil
}

func appendScalarColumn(frame *dataframe.Frame, t cell.Type, n int, set func(row *cell.Row, i int)) error {
	for i := 0; i < n; i++ {
		row := cell.NewRow(frame.Schema())
		set(row, i)
		if err := frame.AddRow(row); err != nil {
			return fmt.Errorf("sourceframe: add row %d: %w", i, err)
		}
	}
	return nil
}

// FromInts builds a one-column I32 frame from values, publishes it under
// key, and returns it.
func FromInts(store *kv.Store, nodeID, numNodes int, key kv.Key, values []int32) (*dataframe.Frame, error) {
	frame, err := newSingleColumnFrame(cell.I32, store, nodeID, numNodes)
	if err != nil {
		return nil, err
	}
	err = appendScalarColumn(frame, cell.I32, len(values), func(row *cell.Row, i int) {
		row.Set(0, cell.NewInt(values[i]))
	})
	if err != nil {
		return nil, err
	}
	return frame, Publish(store, key, frame)
}

// FromInt builds a one-row, one-column I32 frame from a single scalar.
func FromInt(store *kv.Store, nodeID, numNodes int, key kv.Key, value int32) (*dataframe.Frame, error) {
	return FromInts(store, nodeID, numNodes, key, []int32{value})
}

// FromFloats builds a one-column F32 frame from values, publishes it
// under key, and returns it.
func FromFloats(store *kv.Store, nodeID, numNodes int, key kv.Key, values []float32) (*dataframe.Frame, error) {
	frame, err := newSingleColumnFrame(cell.F32, store, nodeID, numNodes)
	if err != nil {
		return nil, err
	}
	err = appendScalarColumn(frame, cell.F32, len(values), func(row *cell.Row, i int) {
		row.Set(0, cell.NewFloat(values[i]))
	})
	if err != nil {
		return nil, err
	}
	return frame, Publish(store, key, frame)
}

// FromFloat builds a one-row, one-column F32 frame from a single scalar.
func FromFloat(store *kv.Store, nodeID, numNodes int, key kv.Key, value float32) (*dataframe.Frame, error) {
	return FromFloats(store, nodeID, numNodes, key, []float32{value})
}

// FromBools builds a one-column Bool frame from values, publishes it
// under key, and returns it.
func FromBools(store *kv.Store, nodeID, numNodes int, key kv.Key, values []bool) (*dataframe.Frame, error) {
	frame, err := newSingleColumnFrame(cell.Bool, store, nodeID, numNodes)
	if err != nil {
		return nil, err
	}
	err = appendScalarColumn(frame, cell.Bool, len(values), func(row *cell.Row, i int) {
		row.Set(0, cell.NewBool(values[i]))
	})
	if err != nil {
		return nil, err
	}
	return frame, Publish(store, key, frame)
}

// FromBool builds a one-row, one-column Bool frame from a single scalar.
func FromBool(store *kv.Store, nodeID, numNodes int, key kv.Key, value bool) (*dataframe.Frame, error) {
	return FromBools(store, nodeID, numNodes, key, []bool{value})
}

// FromStrings builds a one-column Str frame from values, publishes it
// under key, and returns it.
func FromStrings(store *kv.Store, nodeID, numNodes int, key kv.Key, values []string) (*dataframe.Frame, error) {
	frame, err := newSingleColumnFrame(cell.Str, store, nodeID, numNodes)
	if err != nil {
		return nil, err
	}
	err = appendScalarColumn(frame, cell.Str, len(values), func(row *cell.Row, i int) {
		row.Set(0, cell.NewString(values[i]))
	})
	if err != nil {
		return nil, err
	}
	return frame, Publish(store, key, frame)
}

// FromString builds a one-row, one-column Str frame from a single scalar.
func FromString(store *kv.Store, nodeID, numNodes int, key kv.Key, value string) (*dataframe.Frame, error) {
	return FromStrings(store, nodeID, numNodes, key, []string{value})
}

// FromWriter appends every row w produces to a fresh frame shaped by
// w.Schema(), publishes it under key, and returns it (§4.8).
func FromWriter(store *kv.Store, nodeID, numNodes int, key kv.Key, w Writer) (*dataframe.Frame, error) {
	schema := w.Schema()
	frameSchema := cell.NewSchema(schemaTypes(schema), nil, nil)
	frame := dataframe.New(frameSchema, store, nodeID, numNodes)
	for i := 0; i < schema.Width(); i++ {
		col, err := dcolumn.New(schema.Type(i), store, numNodes)
		if err != nil {
			return nil, fmt.Errorf("sourceframe: allocate column %d: %w", i, err)
		}
		if err := frame.AddColumn(col); err != nil {
			return nil, fmt.Errorf("sourceframe: add column %d: %w", i, err)
		}
	}

	for {
		row, ok := w.Next()
		if !ok {
			break
		}
		if err := frame.AddRow(row); err != nil {
			return nil, fmt.Errorf("sourceframe: add row: %w", err)
		}
	}

	return frame, Publish(store, key, frame)
}

func schemaTypes(s *cell.Schema) []cell.Type {
	types := make([]cell.Type, s.Width())
	for i := range types {
		types[i] = s.Type(i)
	}
	return types
}

// Publish serializes frame (materializing every distributed column's
// current cells into a local, encodable shape) and stores it under key —
// the whole-data-frame-blob path codec.EncodeDataFrame targets, distinct
// from the per-chunk KV traffic a distributed column generates on its own.
func Publish(store *kv.Store, key kv.Key, frame *dataframe.Frame) error {
	local, err := toLocalFrame(frame)
	if err != nil {
		return fmt.Errorf("sourceframe: materialize frame: %w", err)
	}
	encoded, err := codec.EncodeDataFrame(local)
	if err != nil {
		return fmt.Errorf("sourceframe: encode frame: %w", err)
	}
	return store.Put(key, []byte(encoded))
}

func toLocalFrame(f *dataframe.Frame) (*codec.LocalFrame, error) {
	cols := make([]*column.Column, f.Width())
	for c := 0; c < f.Width(); c++ {
		col := column.New(f.Schema().Type(c))
		for r := 0; r < f.NRows(); r++ {
			v, err := f.Get(c, r)
			if err != nil {
				return nil, fmt.Errorf("materialize column %d, row %d: %w", c, r, err)
			}
			col.PushBack(v)
		}
		cols[c] = col
	}
	return &codec.LocalFrame{Schema: f.Schema(), Columns: cols}, nil
}
