package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"bool true", IRBool(true), "true"},
		{"null", IRNull{}, "null"},
		{"nil", nil, "null"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"plain slice", []any{"a", int64(1), true, nil}, `["a",1,true,null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRInt(2),
		"beta":  IRObject{"b": IRInt(1), "a": IRInt(2)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalSQLText(t *testing.T) {
	result, err := MarshalCanonical(IRString(`SELECT "book"."id" FROM "book" WHERE x < 1 & y > 2`))
	require.NoError(t, err)
	assert.Equal(t, `"SELECT \"book\".\"id\" FROM \"book\" WHERE x < 1 & y > 2"`, string(result))
}

func TestMarshalCanonicalEscapes(t *testing.T) {
	result, err := MarshalCanonical(IRString("a\nb\t\\\x01 "))
	require.NoError(t, err)
	assert.Equal(t, "\"a\\nb\\t\\\\\\u0001 \"", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	result, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalRejectsFloat(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}
