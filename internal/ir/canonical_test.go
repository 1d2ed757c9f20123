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
		{"int", IRInt(42), "42"},
		{"float", IRFloat(2.5), "2.5"},
		{"whole float", IRFloat(3), "3"},
		{"bool", IRBool(false), "false"},
		{"null", IRNull{}, "null"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"nested", IRObject{"b": IRArray{IRInt(1)}, "a": IRString("x")}, `{"a":"x","b":[1]}`},
		{"go map", map[string]any{"z": 1, "a": "y"}, `{"a":"y","z":1}`},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical(IRString("a<b>&c"))
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(result))
}

func TestMarshalCanonicalLineSeparatorsLiteral(t *testing.T) {
	result, err := MarshalCanonical(IRString("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))
}

func TestMarshalCanonicalEscapedBackslashKept(t *testing.T) {
	result, err := MarshalCanonical(IRString(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	result, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
