package codec

import (
	"fmt"
	"strings"

	"github.com/clusterdf/ddf/internal/cell"
)

// EncodeArray renders a slice of cells of the same type as "comma-separated
// scalar encodings; empty array encodes as the empty string" (§6). Missing
// cells contribute their type's zero value — the column's own missing-bit
// chunk is the source of truth for which entries those actually are.
func EncodeArray(t cell.Type, cells []cell.Cell) (string, error) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if c.IsMissing() {
			parts[i] = zeroScalar(t)
			continue
		}
		s, err := EncodeScalar(c)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ArraySep), nil
}

func zeroScalar(t cell.Type) string {
	switch t {
	case cell.I32:
		return EncodeInt(0)
	case cell.F32:
		return EncodeFloat(0)
	case cell.Bool:
		return EncodeBool(false)
	case cell.Str:
		return ""
	default:
		panic(fmt.Sprintf("codec: unknown type %v", t))
	}
}

// DecodeArray parses a comma-separated list of scalar encodings of type t.
// An empty string decodes to a zero-length slice, not a one-element slice
// of the empty-string scalar.
func DecodeArray(t cell.Type, s string) ([]cell.Cell, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ArraySep)
	cells := make([]cell.Cell, len(parts))
	for i, p := range parts {
		c, err := DecodeScalar(t, p)
		if err != nil {
			return nil, fmt.Errorf("codec: array element %d: %w", i, err)
		}
		cells[i] = c
	}
	return cells, nil
}

// EncodeBoolArray/DecodeBoolArray are the array codec specialized to the
// missing-bit chunks a distributed column keeps alongside its value
// chunks (§4.6) — structurally identical to EncodeArray/DecodeArray for
// cell.Bool, exposed on plain []bool since missing-bit chunks never
// themselves carry a missing flag.
func EncodeBoolArray(bits []bool) string {
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = EncodeBool(b)
	}
	return strings.Join(parts, ArraySep)
}

func DecodeBoolArray(s string) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ArraySep)
	bits := make([]bool, len(parts))
	for i, p := range parts {
		b, err := DecodeBool(p)
		if err != nil {
			return nil, fmt.Errorf("codec: missing-bit array element %d: %w", i, err)
		}
		bits[i] = b
	}
	return bits, nil
}
