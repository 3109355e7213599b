package codec

import (
	"fmt"
	"strings"

	"github.com/clusterdf/ddf/internal/cell"
)

// EncodeSchema renders "<types>;<col_names>;<row_names>" where each part
// is a comma-separated string array (§6); column/row names may be empty.
func EncodeSchema(s *cell.Schema) string {
	types := make([]string, s.Width())
	for i := 0; i < s.Width(); i++ {
		types[i] = string(s.Type(i).Tag())
	}

	colNames := make([]string, s.Width())
	rowNames := make([]string, s.NRows())
	for i := range colNames {
		colNames[i] = s.ColName(i)
	}
	for i := range rowNames {
		rowNames[i] = s.RowName(i)
	}

	return strings.Join(types, ArraySep) + ColumnSep +
		strings.Join(colNames, ArraySep) + ColumnSep +
		strings.Join(rowNames, ArraySep)
}

// DecodeSchema parses the format EncodeSchema produces. The row count of
// the returned schema is len(rowNames) (zero if the row-name field was
// empty), since the row-name list is the only place the wire format
// records "how many rows" independent of column contents.
func DecodeSchema(s string) (*cell.Schema, error) {
	parts := strings.SplitN(s, ColumnSep, 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("codec: malformed schema %q", s)
	}

	typeTags := splitNonEmpty(parts[0])
	colNames := splitNonEmpty(parts[1])
	rowNames := splitNonEmpty(parts[2])

	types := make([]cell.Type, len(typeTags))
	for i, tag := range typeTags {
		if len(tag) != 1 {
			return nil, fmt.Errorf("codec: malformed type tag %q", tag)
		}
		t, err := cell.ParseType(tag[0])
		if err != nil {
			return nil, err
		}
		types[i] = t
	}

	schema := cell.NewSchema(types, colNames, rowNames)
	for i := 0; i < len(rowNames); i++ {
		schema.AddRow()
	}
	return schema, nil
}

// splitNonEmpty is strings.Split except it returns an empty slice (not a
// one-element slice holding "") for an empty input, matching the "empty
// array encodes as the empty string" rule used throughout §6.
func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ArraySep)
}
