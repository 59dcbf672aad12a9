package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectInt(t *testing.T) {
	row := IRObject{
		"orderKey":  IRInt(20),
		"isDeleted": IRBool(true),
		"title":     IRString("home"),
	}

	k, ok := row.Int("orderKey")
	assert.True(t, ok)
	assert.Equal(t, int64(20), k)

	d, ok := row.Int("isDeleted")
	assert.True(t, ok)
	assert.Equal(t, int64(1), d)

	_, ok = row.Int("title")
	assert.False(t, ok)

	_, ok = row.Int("missing")
	assert.False(t, ok)
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestIRObjectClone(t *testing.T) {
	row := IRObject{"id": IRInt(1)}
	cp := row.Clone()
	cp["id"] = IRInt(2)
	assert.Equal(t, IRInt(1), row["id"])
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "x", IRString("x")},
		{"bool", false, IRBool(false)},
		{"int", 7, IRInt(7)},
		{"int64", int64(-3), IRInt(-3)},
		{"integral float", float64(12), IRInt(12)},
		{"already ir", IRInt(5), IRInt(5)},
		{"list", []any{1, "a"}, IRArray{IRInt(1), IRString("a")}},
		{"map", map[string]any{"k": true}, IRObject{"k": IRBool(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_RejectsFractions(t *testing.T) {
	_, err := FromAny(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-integer")

	_, err = FromAny(struct{}{})
	require.Error(t, err)
}

func TestToParam(t *testing.T) {
	p, err := ToParam(IRBool(true))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p)

	p, err = ToParam(IRString("s"))
	require.NoError(t, err)
	assert.Equal(t, "s", p)

	p, err = ToParam(IRNull{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ToParam(IRArray{})
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want int
	}{
		{"ints less", IRInt(1), IRInt(2), -1},
		{"ints equal", IRInt(2), IRInt(2), 0},
		{"ints greater", IRInt(3), IRInt(2), 1},
		{"bool vs int", IRBool(false), IRInt(0), 0},
		{"strings", IRString("a"), IRString("b"), -1},
		{"null first", IRNull{}, IRInt(0), -1},
		{"null equal", IRNull{}, IRNull{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Compare(IRString("a"), IRInt(1))
	assert.Error(t, err)
}
