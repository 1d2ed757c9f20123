package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(4.2)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16Order(t *testing.T) {
	obj := IRObject{"a": IRInt(1), "A": IRInt(2), "aa": IRInt(3), "Aa": IRInt(4)}
	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, obj.SortedKeys())
}

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want IRValue
	}{
		{"string", `"x"`, IRString("x")},
		{"int", `42`, IRInt(42)},
		{"negative int", `-7`, IRInt(-7)},
		{"float", `4.5`, IRFloat(4.5)},
		{"exponent", `1e3`, IRFloat(1000)},
		{"bool", `true`, IRBool(true)},
		{"null", `null`, IRNull{}},
		{"array", `[1,"a"]`, IRArray{IRInt(1), IRString("a")}},
		{"object", `{"resource":"t","property":"a"}`, IRObject{"resource": IRString("t"), "property": IRString("a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalIRValueLargeIntKeepsPrecision(t *testing.T) {
	got, err := UnmarshalIRValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), got)
}

func TestFromAny(t *testing.T) {
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1,2.5,"x",null]}`), &decoded))

	got, err := FromAny(decoded)
	require.NoError(t, err)
	assert.Equal(t, IRObject{"a": IRArray{IRInt(1), IRFloat(2.5), IRString("x"), IRNull{}}}, got)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(IRInt(1)))
	assert.True(t, IsNumeric(IRFloat(1.5)))
	assert.True(t, IsNumeric(IRString(" 3.25 ")))
	assert.False(t, IsNumeric(IRString("abc")))
	assert.False(t, IsNumeric(IRBool(true)))
	assert.False(t, IsNumeric(IRArray{}))
}

func TestToNativeAndBack(t *testing.T) {
	for _, v := range []IRValue{IRString("s"), IRInt(3), IRFloat(1.25), IRBool(false)} {
		native, err := ToNative(v)
		require.NoError(t, err)
		back, err := FromNative(native)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	_, err := ToNative(IRArray{})
	assert.Error(t, err)
}

func TestFromNativeBytes(t *testing.T) {
	got, err := FromNative([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, IRString("abc"), got)
}

func TestMarshalIRValueRejectsNaN(t *testing.T) {
	nan := IRFloat(0)
	nan = nan / nan
	_, err := MarshalIRValue(nan)
	assert.Error(t, err)
}

func TestFromNativeTime(t *testing.T) {
	date, err := FromNative(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, IRString("2020-01-02"), date)

	ts, err := FromNative(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, IRString("2020-01-02T03:04:05Z"), ts)
}
