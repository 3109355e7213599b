// Package codec implements the text-framed encode/decode format from §6:
// scalars, arrays, columns, schemas, data frames and control messages.
//
// Grounded on original_source/src/store/serial.h and serial.cpp — the
// original Serializer class is one big re-implementable surface; this
// package keeps that same "one function pair per type" shape but makes
// each pair a plain Go function instead of a virtual method, since there
// is only ever one serialization strategy in this module (design note
// §9 calls the original's sub-classable Serializer out as reworkable).
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clusterdf/ddf/internal/cell"
)

const (
	// ArraySep separates scalar encodings within an array or column.
	ArraySep = ","
	// ColumnSep separates columns within a data frame.
	ColumnSep = ";"
	// SchemaSep separates the schema from the column list in a data
	// frame, and the value-csv from the missing-bitstring within a
	// column (see doc.go for why both reuse '~').
	SchemaSep = "~"
)

// EncodeInt/EncodeFloat/EncodeBool/EncodeString are "plain text
// conversions of their value", per §6.
func EncodeInt(v int32) string     { return strconv.FormatInt(int64(v), 10) }
func EncodeFloat(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func EncodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
func EncodeString(v string) (string, error) {
	if strings.ContainsAny(v, ArraySep+ColumnSep+SchemaSep) {
		return "", fmt.Errorf("codec: string value %q contains a reserved delimiter", v)
	}
	return v, nil
}

func DecodeInt(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("codec: decode int %q: %w", s, err)
	}
	return int32(v), nil
}

func DecodeFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("codec: decode float %q: %w", s, err)
	}
	return float32(v), nil
}

func DecodeBool(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("codec: decode bool: invalid value %q", s)
	}
}

// EncodeScalar renders a single non-missing cell's value as plain text.
// The caller (EncodeArray) is responsible for substituting a type-zero
// placeholder for missing cells, since the payload of a missing cell
// "must not be read for value" (§3) and its textual form is therefore
// irrelevant as long as it round-trips through the decoder.
func EncodeScalar(c cell.Cell) (string, error) {
	switch c.Type() {
	case cell.I32:
		return EncodeInt(c.Int()), nil
	case cell.F32:
		return EncodeFloat(c.Float()), nil
	case cell.Bool:
		return EncodeBool(c.Bool()), nil
	case cell.Str:
		return EncodeString(c.String())
	default:
		return "", fmt.Errorf("codec: unknown cell type %v", c.Type())
	}
}

// DecodeScalar parses a non-missing value of the given type.
func DecodeScalar(t cell.Type, s string) (cell.Cell, error) {
	switch t {
	case cell.I32:
		v, err := DecodeInt(s)
		if err != nil {
			return cell.Cell{}, err
		}
		return cell.NewInt(v), nil
	case cell.F32:
		v, err := DecodeFloat(s)
		if err != nil {
			return cell.Cell{}, err
		}
		return cell.NewFloat(v), nil
	case cell.Bool:
		v, err := DecodeBool(s)
		if err != nil {
			return cell.Cell{}, err
		}
		return cell.NewBool(v), nil
	case cell.Str:
		return cell.NewString(s), nil
	default:
		return cell.Cell{}, fmt.Errorf("codec: unknown type %v", t)
	}
}
