package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the encodable subset of entity content.
// Only String, Int, Bool, Array and Object implement it.
// There is no float and no null: both break byte-level determinism
// across independent implementations of the wire contract.
type Value interface {
	irValue()
}

// String is a UTF-8 string value. It is NFC-normalized when serialized.
type String string

func (String) irValue() {}

// Int is an integer value. Always int64, never float64, and limited to
// ±(2^53-1) so that every JSON implementation reads it back exactly.
type Int int64

// Integer bounds of the encodable subset (I-JSON safe integers).
const (
	MaxSafeInt Int = 1<<53 - 1
	MinSafeInt Int = -MaxSafeInt
)

// checkInt rejects integers a double-based JSON parser would round.
func checkInt(path string, n int64) (Int, error) {
	if n > int64(MaxSafeInt) || n < int64(MinSafeInt) {
		return 0, &SerializationError{Path: path, Reason: fmt.Sprintf("integer %d outside ±(2^53-1)", n)}
	}
	return Int(n), nil
}

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Pair is a key/value pair for typed Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
//
//	ObjectOf(P("name", String("pref-flip")), P("revision", Int(3)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// ObjectOf builds an Object from pairs. Later pairs win on duplicate keys.
func ObjectOf(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Clone returns a deep copy of the object.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Object:
		return val.Clone()
	case Array:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = cloneValue(elem)
		}
		return arr
	default:
		return v
	}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string ordering compares UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON decodes a JSON object, rejecting floats and nulls.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := DecodeValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// MarshalJSON encodes the object canonically.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// DecodeValue parses JSON into a Value.
// Floats and nulls are rejected with a *SerializationError naming their path.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return FromGo(raw)
}

// FromGo converts a decoded Go value (from encoding/json with UseNumber,
// yaml.v3, or hand-built maps) into a Value.
func FromGo(v any) (Value, error) {
	return fromGo("$", v)
}

func fromGo(path string, v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, &SerializationError{Path: path, Reason: "null is not encodable"}
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return checkInt(path, int64(val))
	case int64:
		return checkInt(path, val)
	case int32:
		return Int(val), nil
	case uint64:
		if val > uint64(MaxSafeInt) {
			return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("integer %d outside ±(2^53-1)", val)}
		}
		return Int(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			if _, ok := new(big.Int).SetString(val.String(), 10); ok {
				return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("integer %s outside ±(2^53-1)", val)}
			}
			return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("number %s is not an integer", val)}
		}
		return checkInt(path, n)
	case float32, float64:
		return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("float %v is not encodable", val)}
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := fromGo(fmt.Sprintf("%s[%d]", path, i), elem)
			if err != nil {
				return nil, err
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := fromGo(path+"."+k, elem)
			if err != nil {
				return nil, err
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// ToGo converts a Value into plain Go values (string, json.Number, bool,
// []any, map[string]any) as produced by encoding/json with UseNumber.
// Used to hand content to JSON Schema validation.
func ToGo(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return json.Number(fmt.Sprintf("%d", int64(val)))
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
