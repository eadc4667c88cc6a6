// Package canon renders JSON-shaped values into a single deterministic byte
// form and fingerprints it.
//
// Object keys are sorted by code point at every level and no whitespace is
// emitted. Strings escape everything outside printable ASCII as lowercase
// \uXXXX. Integers print in plain decimal; other numbers use shortest
// round-trip digits, switching to exponent form outside [1e-4, 1e16).
// Structurally equal values always produce identical bytes, which is what
// makes the fingerprint usable for deduplication and signing.
package canon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Marshal returns the canonical encoding of v.
//
// Maps, slices, strings, booleans, nil, json.Number and Go numeric types are
// encoded directly. Any other value is first passed through encoding/json
// and then canonicalized, so structs encode by their json tags.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Canonicalize decodes a single JSON document and re-encodes it canonically.
// Applying it to its own output returns the same bytes.
func Canonicalize(data []byte) ([]byte, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Marshal(v)
}

// Decode parses exactly one JSON document, keeping numbers as json.Number.
// Duplicate object keys keep the last value.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, errors.New("canon: decode: trailing data after JSON document")
	}
	return v, nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, x)
	case json.Number:
		s, err := formatNumber(x)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case float64:
		s, err := formatFloat(x)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case float32:
		return encode(buf, float64(x))
	case int:
		buf.WriteString(formatInt(int64(x)))
	case int64:
		buf.WriteString(formatInt(x))
	case int32:
		buf.WriteString(formatInt(int64(x)))
	case uint64:
		return encode(buf, json.Number(fmt.Sprint(x)))
	case uint:
		return encode(buf, json.Number(fmt.Sprint(x)))
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := encode(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		return encode(buf, m)
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, e)
		}
		buf.WriteByte(']')
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canon: marshal %T: %w", v, err)
		}
		generic, err := Decode(raw)
		if err != nil {
			return err
		}
		return encode(buf, generic)
	}
	return nil
}
