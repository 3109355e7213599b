package column

import (
	"testing"

	"github.com/clusterdf/ddf/internal/cell"
)

func TestPushBackThenGetPreservesOrder(t *testing.T) {
	c := New(cell.I32)
	for i := int32(0); i < 10; i++ {
		c.PushBack(cell.NewInt(i))
	}
	if c.Length() != 10 {
		t.Fatalf("got length %d, want 10", c.Length())
	}
	for i := int32(0); i < 10; i++ {
		got := c.Get(int(i))
		if got.Int() != i {
			t.Errorf("index %d: got %d, want %d", i, got.Int(), i)
		}
	}
}

func TestPushBackAcrossArenaBoundary(t *testing.T) {
	c := New(cell.Bool)
	n := ArenaCap*2 + 7
	for i := 0; i < n; i++ {
		c.PushBack(cell.NewBool(i%2 == 0))
	}
	if c.Length() != n {
		t.Fatalf("got length %d, want %d", c.Length(), n)
	}
	for i := 0; i < n; i++ {
		want := i%2 == 0
		if c.Get(i).Bool() != want {
			t.Errorf("index %d: got %v, want %v", i, c.Get(i).Bool(), want)
		}
	}
}

func TestSetOverwritesAndTogglesMissing(t *testing.T) {
	c := New(cell.Str)
	c.PushBack(cell.NewString("a"))
	c.PushBack(cell.NewString("b"))

	c.Set(0, cell.NewMissing(cell.Str))
	if !c.IsMissing(0) {
		t.Error("expected index 0 to be missing after Set")
	}

	c.Set(0, cell.NewString("c"))
	if c.IsMissing(0) {
		t.Error("expected index 0 to no longer be missing")
	}
	if c.Get(0).String() != "c" {
		t.Errorf("got %q, want %q", c.Get(0).String(), "c")
	}
	if c.Get(1).String() != "b" {
		t.Errorf("index 1 should be untouched: got %q", c.Get(1).String())
	}
}

func TestCellsReturnsOrderedCopy(t *testing.T) {
	c := New(cell.F32)
	vals := []float32{1, 2, 3}
	for _, v := range vals {
		c.PushBack(cell.NewFloat(v))
	}
	cells := c.Cells()
	if len(cells) != len(vals) {
		t.Fatalf("got %d cells, want %d", len(cells), len(vals))
	}
	for i, v := range vals {
		if cells[i].Float() != v {
			t.Errorf("index %d: got %v, want %v", i, cells[i].Float(), v)
		}
	}
}

func TestReleaseResetsColumn(t *testing.T) {
	c := New(cell.I32)
	c.PushBack(cell.NewInt(1))
	c.Release()
	if c.Length() != 0 {
		t.Errorf("got length %d after Release, want 0", c.Length())
	}
}
