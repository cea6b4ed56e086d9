package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue([]byte(`{"name":"x","count":3,"tags":["a","b"],"on":true}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("x"), obj["name"])
	assert.Equal(t, Int(3), obj["count"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["tags"])
	assert.Equal(t, Bool(true), obj["on"])
}

func TestDecodeValueRejectsFloats(t *testing.T) {
	tests := []struct {
		name string
		json string
		path string
	}{
		{"decimal", `{"ratio":0.5}`, "$.ratio"},
		{"exponent", `{"n":1e3}`, "$.n"},
		{"nested", `{"a":{"b":[1,2.5]}}`, "$.a.b[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeValue([]byte(tt.json))
			require.Error(t, err)

			var se *SerializationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
		})
	}
}

func TestDecodeValueRejectsNull(t *testing.T) {
	_, err := DecodeValue([]byte(`{"a":null}`))
	require.Error(t, err)
	assert.True(t, IsSerializationError(err))
}

func TestDecodeValueInvalidJSON(t *testing.T) {
	_, err := DecodeValue([]byte(`{`))
	require.Error(t, err)
	assert.False(t, IsSerializationError(err))
}

func TestObjectUnmarshalJSON(t *testing.T) {
	var holder struct {
		Args Object `json:"args"`
	}
	err := json.Unmarshal([]byte(`{"args":{"pref":"browser.x","value":1}}`), &holder)
	require.NoError(t, err)
	assert.Equal(t, Object{"pref": String("browser.x"), "value": Int(1)}, holder.Args)
}

func TestObjectUnmarshalJSONRejectsNonObject(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
}

func TestObjectMarshalJSONIsCanonical(t *testing.T) {
	b, err := json.Marshal(Object{"b": Int(1), "a": String("<x>")})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1}`, string(b))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"s": "x",
		"i": 7,
		"l": []any{int64(1), true},
	})
	require.NoError(t, err)
	assert.Equal(t, Object{"s": String("x"), "i": Int(7), "l": Array{Int(1), Bool(true)}}, v)

	_, err = FromGo(map[string]any{"f": 1.5})
	require.Error(t, err)

	_, err = FromGo(struct{}{})
	require.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	obj := Object{"n": Int(5), "l": Array{String("a")}, "b": Bool(false)}

	back, err := FromGo(ToGo(obj))
	require.NoError(t, err)
	assert.Equal(t, obj, back)
}

func TestObjectClone(t *testing.T) {
	orig := Object{"nested": Object{"k": Int(1)}, "list": Array{Int(1)}}
	cp := orig.Clone()

	cp["nested"].(Object)["k"] = Int(2)
	cp["list"].(Array)[0] = Int(9)

	assert.Equal(t, Int(1), orig["nested"].(Object)["k"])
	assert.Equal(t, Int(1), orig["list"].(Array)[0])
	assert.Nil(t, Object(nil).Clone())
}

func TestDecodeValueIntegerBounds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
		path  string
	}{
		{"max safe", `{"n":9007199254740991}`, Object{"n": MaxSafeInt}, ""},
		{"min safe", `{"n":-9007199254740991}`, Object{"n": MinSafeInt}, ""},
		{"2^53+1", `{"n":9007199254740993}`, nil, "$.n"},
		{"beyond int64", `{"n":[123456789012345678901234567890]}`, nil, "$.n[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DecodeValue([]byte(tt.input))
			if tt.path == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, v)
				return
			}
			var se *SerializationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.Contains(t, se.Reason, "2^53-1")
		})
	}
}

func TestFromGoIntegerBounds(t *testing.T) {
	_, err := FromGo(map[string]any{"n": int64(1 << 53)})
	assert.True(t, IsSerializationError(err))

	_, err = FromGo(map[string]any{"n": uint64(1 << 60)})
	assert.True(t, IsSerializationError(err))

	v, err := FromGo(map[string]any{"n": 1<<53 - 1})
	require.NoError(t, err)
	assert.Equal(t, Object{"n": MaxSafeInt}, v)
}
