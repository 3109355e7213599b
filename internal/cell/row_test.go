package cell

import "testing"

func TestNewRowDefaultsToMissing(t *testing.T) {
	schema := NewSchema([]Type{I32, Str}, nil, nil)
	row := NewRow(schema)
	if row.Width() != 2 {
		t.Fatalf("got width %d, want 2", row.Width())
	}
	if !row.Get(0).IsMissing() || !row.Get(1).IsMissing() {
		t.Error("expected every cell to default to missing")
	}
}

func TestRowSetGet(t *testing.T) {
	schema := NewSchema([]Type{I32, Bool}, nil, nil)
	row := NewRow(schema)
	row.Set(0, NewInt(42))
	row.Set(1, NewBool(true))

	if row.Get(0).Int() != 42 {
		t.Errorf("got %d, want 42", row.Get(0).Int())
	}
	if row.Get(1).Bool() != true {
		t.Error("expected true")
	}
}

type recordingFielder struct {
	started []int
	ints    []int32
	floats  []float32
	bools   []bool
	strings []string
	missing int
	done    int
}

func (f *recordingFielder) Start(idx int)      { f.started = append(f.started, idx) }
func (f *recordingFielder) VisitInt(v int32)   { f.ints = append(f.ints, v) }
func (f *recordingFielder) VisitFloat(v float32) { f.floats = append(f.floats, v) }
func (f *recordingFielder) VisitBool(v bool)   { f.bools = append(f.bools, v) }
func (f *recordingFielder) VisitString(v string) { f.strings = append(f.strings, v) }
func (f *recordingFielder) VisitMissing()      { f.missing++ }
func (f *recordingFielder) Done()              { f.done++ }

func TestRowVisitDispatchesByTypeAndMissing(t *testing.T) {
	schema := NewSchema([]Type{I32, F32, Bool, Str}, nil, nil)
	row := NewRow(schema)
	row.SetIdx(7)
	row.Set(0, NewInt(1))
	row.Set(1, NewMissing(F32))
	row.Set(2, NewBool(true))
	row.Set(3, NewString("hi"))

	f := &recordingFielder{}
	row.Visit(f)

	if len(f.started) != 1 || f.started[0] != 7 {
		t.Errorf("expected Start(7) once, got %v", f.started)
	}
	if len(f.ints) != 1 || f.ints[0] != 1 {
		t.Errorf("got ints %v", f.ints)
	}
	if f.missing != 1 {
		t.Errorf("got %d missing visits, want 1", f.missing)
	}
	if len(f.bools) != 1 || !f.bools[0] {
		t.Errorf("got bools %v", f.bools)
	}
	if len(f.strings) != 1 || f.strings[0] != "hi" {
		t.Errorf("got strings %v", f.strings)
	}
	if f.done != 1 {
		t.Errorf("got %d Done calls, want 1", f.done)
	}
}
