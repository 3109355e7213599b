package dataframe

import (
	"sync"
	"testing"

	"github.com/clusterdf/ddf/internal/cell"
	"github.com/clusterdf/ddf/internal/dcolumn"
	"github.com/clusterdf/ddf/internal/kv"
)

func newTestFrame(t *testing.T, numNodes, nodeID int, addrs []string) *Frame {
	t.Helper()
	store := kv.NewStore(nodeID, func() []string { return addrs }, nil)
	schema := cell.NewSchema([]cell.Type{cell.I32}, nil, nil)
	frame := New(schema, store, nodeID, numNodes)
	col, err := dcolumn.New(cell.I32, store, numNodes)
	if err != nil {
		t.Fatalf("dcolumn.New: %v", err)
	}
	if err := frame.AddColumn(col); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	return frame
}

func fillFrame(t *testing.T, f *Frame, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		row := cell.NewRow(f.Schema())
		row.Set(0, cell.NewInt(int32(i)))
		if err := f.AddRow(row); err != nil {
			t.Fatalf("AddRow(%d): %v", i, err)
		}
	}
}

// sumRower accumulates column 0 across every row it visits, doubling the
// value in place so Map's write-back can be observed independently.
type sumRower struct {
	mu  sync.Mutex
	sum int64
}

func (r *sumRower) Accept(row *cell.Row) bool {
	v := row.Get(0)
	r.mu.Lock()
	r.sum += int64(v.Int())
	r.mu.Unlock()
	row.Set(0, cell.NewInt(v.Int()*2))
	return v.Int()%2 == 0
}

func (r *sumRower) Clone() Rower {
	return &sumRower{}
}

func (r *sumRower) Join(other Rower) {
	o := other.(*sumRower)
	r.mu.Lock()
	r.sum += o.sum
	r.mu.Unlock()
}

func TestMapVisitsAllRowsAndWritesBack(t *testing.T) {
	f := newTestFrame(t, 1, 0, []string{"local:0"})
	fillFrame(t, f, 20)

	r := &sumRower{}
	if err := f.Map(r); err != nil {
		t.Fatalf("Map: %v", err)
	}

	want := int64(0)
	for i := 0; i < 20; i++ {
		want += int64(i)
	}
	if r.sum != want {
		t.Errorf("got sum %d, want %d", r.sum, want)
	}

	for i := 0; i < 20; i++ {
		got, err := f.Get(0, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got.Int() != int32(i*2) {
			t.Errorf("row %d: got %d, want %d", i, got.Int(), i*2)
		}
	}
}

func TestLocalMapVisitsOnlyLocalRows(t *testing.T) {
	addrs := []string{"a:0", "b:0"}
	f0 := newTestFrame(t, 2, 0, addrs)
	fillFrame(t, f0, dcolumn.DefaultChunkSize*2+10)

	visited := make(map[int]bool)
	rower := &recordingRower{visited: visited}
	if err := f0.LocalMap(rower); err != nil {
		t.Fatalf("LocalMap: %v", err)
	}

	for r := range visited {
		chunkIdx, _ := f0.columns[0].ChunkIndexAndOffset(r)
		if chunkIdx%2 != 0 {
			t.Errorf("row %d (chunk %d) should not have been visited by node 0", r, chunkIdx)
		}
	}
	if len(visited) == 0 {
		t.Errorf("expected node 0 to visit some rows")
	}
}

type recordingRower struct {
	mu      sync.Mutex
	visited map[int]bool
}

func (r *recordingRower) Accept(row *cell.Row) bool {
	r.mu.Lock()
	r.visited[row.Idx()] = true
	r.mu.Unlock()
	return true
}
func (r *recordingRower) Clone() Rower { return &recordingRower{visited: make(map[int]bool)} }
func (r *recordingRower) Join(other Rower) {
	o := other.(*recordingRower)
	r.mu.Lock()
	for k := range o.visited {
		r.visited[k] = true
	}
	r.mu.Unlock()
}

func TestFilterKeepsOnlyAcceptedRows(t *testing.T) {
	f := newTestFrame(t, 1, 0, []string{"local:0"})
	fillFrame(t, f, 10)

	out, err := f.Filter(&evenRower{})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if out.NRows() != 5 {
		t.Fatalf("got %d rows, want 5", out.NRows())
	}
	for i := 0; i < 5; i++ {
		got, err := out.Get(0, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got.Int() != int32(i*2) {
			t.Errorf("row %d: got %d, want %d", i, got.Int(), i*2)
		}
	}
}

type evenRower struct{}

func (evenRower) Accept(row *cell.Row) bool { return row.Get(0).Int()%2 == 0 }
func (evenRower) Clone() Rower              { return evenRower{} }
func (evenRower) Join(Rower)                {}

func TestParallelMapMergesWithOriginalLast(t *testing.T) {
	f := newTestFrame(t, 1, 0, []string{"local:0"})
	fillFrame(t, f, 37)

	r := &sumRower{}
	if err := f.ParallelMap(r, 4); err != nil {
		t.Fatalf("ParallelMap: %v", err)
	}

	want := int64(0)
	for i := 0; i < 37; i++ {
		want += int64(i)
	}
	if r.sum != want {
		t.Errorf("got sum %d, want %d", r.sum, want)
	}

	for i := 0; i < 37; i++ {
		got, err := f.Get(0, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got.Int() != int32(i*2) {
			t.Errorf("row %d: got %d, want %d", i, got.Int(), i*2)
		}
	}
}
