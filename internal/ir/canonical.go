package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical payload for a value: RFC 8785
// JSON restricted to the encodable subset. This is the ONLY serialization
// that may be used as signing or comparison input.
//
// Wire contract:
//  1. Object keys sorted by UTF-16 code units
//  2. Strings NFC-normalized; only '"', '\\' and U+0000..U+001F are escaped
//     (\b \t \n \f \r short forms, otherwise \u00xx lowercase)
//  3. No HTML escaping; U+2028/U+2029 are emitted literally
//  4. Integers in base 10, no leading zeros, '-' only when negative, and
//     within ±(2^53-1) so double-based parsers read them back exactly
//  5. No whitespace between tokens
//  6. Floats, null, out-of-range integers and object keys that collide
//     after NFC normalization are rejected with *SerializationError
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, "$", v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only in tests or when content is known to be valid.
func MustMarshalCanonical(v Value) []byte {
	b, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return b
}

func writeCanonical(buf *bytes.Buffer, path string, v Value) error {
	switch val := v.(type) {
	case nil:
		return &SerializationError{Path: path, Reason: "null is not encodable"}
	case String:
		return writeCanonicalString(buf, path, string(val))
	case Int:
		n, err := checkInt(path, int64(val))
		if err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(int64(n), 10))
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, fmt.Sprintf("%s[%d]", path, i), elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case Object:
		keys, err := normalizedKeys(path, val)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, path, k.nfc); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, path+"."+k.nfc, val[k.orig]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return &SerializationError{Path: path, Reason: fmt.Sprintf("unsupported value type %T", v)}
	}
}

type objectKey struct {
	orig string
	nfc  string
}

// normalizedKeys returns the keys of obj NFC-normalized and sorted by
// UTF-16 code units. Two keys that normalize to the same string would
// produce a duplicate member, so they are rejected.
func normalizedKeys(path string, obj Object) ([]objectKey, error) {
	keys := make([]objectKey, 0, len(obj))
	seen := make(map[string]string, len(obj))
	for k := range obj {
		if !utf8.ValidString(k) {
			return nil, &SerializationError{Path: path, Reason: "object key is not valid UTF-8"}
		}
		nk := norm.NFC.String(k)
		if prev, dup := seen[nk]; dup {
			a, b := prev, k
			if a > b {
				a, b = b, a
			}
			return nil, &SerializationError{Path: path, Reason: fmt.Sprintf("keys %+q and %+q are equal after NFC normalization", a, b)}
		}
		seen[nk] = k
		keys = append(keys, objectKey{orig: k, nfc: nk})
	}
	slices.SortFunc(keys, func(a, b objectKey) int { return compareUTF16(a.nfc, b.nfc) })
	return keys, nil
}

const hexDigits = "0123456789abcdef"

func writeCanonicalString(buf *bytes.Buffer, path, s string) error {
	if !utf8.ValidString(s) {
		return &SerializationError{Path: path, Reason: "string is not valid UTF-8"}
	}
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\t':
			buf.WriteString(`\t`)
		case '\n':
			buf.WriteString(`\n`)
		case '\f':
			buf.WriteString(`\f`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return nil
}
