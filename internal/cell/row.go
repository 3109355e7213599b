package cell

// Fielder is a per-row visitor handed one typed field at a time in
// schema column order, supplementing Rower per original_source's
// src/store/dataframe/fielder.h (dropped by the distillation but kept
// here as the field-level companion to row-object access).
type Fielder interface {
	Start(rowIdx int)
	VisitInt(v int32)
	VisitFloat(v float32)
	VisitBool(v bool)
	VisitString(v string)
	VisitMissing()
	Done()
}

// Row is a typed tuple shaped by a Schema: one Cell per column. The data
// frame traversals (§4.7's map/local_map/filter) build a fresh Row for
// each row index they visit.
type Row struct {
	schema *Schema
	idx    int
	cells  []Cell
}

// NewRow allocates a Row shaped by schema, with every cell defaulted to
// missing of the schema's column type.
func NewRow(schema *Schema) *Row {
	cells := make([]Cell, schema.Width())
	for i := range cells {
		cells[i] = NewMissing(schema.Type(i))
	}
	return &Row{schema: schema, cells: cells}
}

func (r *Row) Schema() *Schema { return r.schema }
func (r *Row) Width() int      { return len(r.cells) }
func (r *Row) Idx() int        { return r.idx }
func (r *Row) SetIdx(idx int)  { r.idx = idx }

func (r *Row) Get(col int) Cell     { return r.cells[col] }
func (r *Row) Set(col int, c Cell)  { r.cells[col] = c }

// Visit calls back into f once per column, in order, dispatching on the
// column's type and the cell's missing bit.
func (r *Row) Visit(f Fielder) {
	f.Start(r.idx)
	for i, c := range r.cells {
		if c.IsMissing() {
			f.VisitMissing()
			continue
		}
		switch r.schema.Type(i) {
		case I32:
			f.VisitInt(c.Int())
		case F32:
			f.VisitFloat(c.Float())
		case Bool:
			f.VisitBool(c.Bool())
		case Str:
			f.VisitString(c.String())
		}
	}
	f.Done()
}
