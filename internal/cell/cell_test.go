package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeTagRoundTrip(t *testing.T) {
	for _, typ := range []Type{I32, F32, Bool, Str} {
		tag := typ.Tag()
		got, err := ParseType(tag)
		assert.NoError(t, err)
		assert.Equal(t, typ, got)
	}
}

func TestParseTypeRejectsUnknownTag(t *testing.T) {
	_, err := ParseType('Z')
	assert.Error(t, err)
}

func TestCellAccessorsAndEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Cell
		want bool
	}{
		{"int equal", NewInt(3), NewInt(3), true},
		{"int differ", NewInt(3), NewInt(4), false},
		{"float equal", NewFloat(1.5), NewFloat(1.5), true},
		{"bool equal", NewBool(true), NewBool(true), true},
		{"bool differ", NewBool(true), NewBool(false), false},
		{"string equal", NewString("x"), NewString("x"), true},
		{"missing vs present", NewMissing(I32), NewInt(0), false},
		{"missing equal regardless of payload", NewMissing(I32), NewMissing(I32), true},
		{"different types", NewInt(1), NewFloat(1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
		})
	}
}

func TestCellAccessorPanicsOnWrongType(t *testing.T) {
	assert.Panics(t, func() { NewString("x").Int() })
}

func TestNewMissingPreservesType(t *testing.T) {
	c := NewMissing(Bool)
	assert.True(t, c.IsMissing())
	assert.Equal(t, Bool, c.Type())
}
