// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies which variant of [Value] is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ErrUnsupportedValue is returned when a Go value cannot be represented as a
// [Value] (channels, funcs, NaN, ±Inf and similar).
var ErrUnsupportedValue = errors.New("unsupported value")

// Value is a JSON-like tagged value used as the structured payload of a
// [Document]. The zero Value is null.
//
// Values are immutable from the caller's point of view: accessors that return
// slices or maps return copies.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	array   []Value
	object  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number wraps f.
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }

// Int wraps i as a number.
func Int(i int64) Value { return Value{kind: KindNumber, number: float64(i)} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array builds an array value from items.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, array: cp}
}

// Object builds an object value. The map is copied.
func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, object: cp}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.boolean, v.kind == KindBool }

// AsNumber returns the number and whether v is a number.
func (v Value) AsNumber() (float64, bool) { return v.number, v.kind == KindNumber }

// AsString returns the string and whether v is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// Items returns a copy of the array elements, or nil when v is not an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	cp := make([]Value, len(v.array))
	copy(cp, v.array)
	return cp
}

// Fields returns a copy of the object fields, or nil when v is not an object.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	cp := make(map[string]Value, len(v.object))
	for k, f := range v.object {
		cp[k] = f
	}
	return cp
}

// Get returns the field named key of an object value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.object[key]
	return f, ok
}

// Keys returns the sorted field names of an object value.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.object))
	for k := range v.object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of elements of an array or fields of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.array)
	case KindObject:
		return len(v.object)
	default:
		return 0
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindString:
		return v.str == other.str
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.object) != len(other.object) {
			return false
		}
		for k, f := range v.object {
			o, ok := other.object[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts plain Go values (the shapes produced by encoding/json plus
// the common integer and float types) into a [Value].
func FromAny(in any) (Value, error) {
	switch val := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(int64(val)), nil
	case float32:
		return checkedNumber(float64(val))
	case float64:
		return checkedNumber(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %w", ErrUnsupportedValue, err)
		}
		return checkedNumber(f)
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = converted
		}
		return Value{kind: KindArray, array: items}, nil
	case []string:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = String(item)
		}
		return Value{kind: KindArray, array: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%q]: %w", k, err)
			}
			fields[k] = converted
		}
		return Value{kind: KindObject, object: fields}, nil
	case map[string]string:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			fields[k] = String(item)
		}
		return Value{kind: KindObject, object: fields}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, in)
	}
}

// MustFromAny is like [FromAny] but panics on error. Intended for literals in
// tests and examples.
func MustFromAny(in any) Value {
	v, err := FromAny(in)
	if err != nil {
		panic(err)
	}
	return v
}

func checkedNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return Number(f), nil
}

// Any converts v back into plain Go values (nil, bool, float64, string,
// []any, map[string]any).
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindNumber:
		return v.number
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.array))
		for i, item := range v.array {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.object))
		for k, item := range v.object {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements [json.Marshaler]. Object keys are written in sorted
// order so the output is deterministic.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Canonical returns the canonical serialization of v: sorted object keys,
// NFC-normalised strings, no HTML escaping. Two values have equal canonical
// forms if and only if they are equal after string normalisation, so the
// output is suitable as content-hash input.
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, true); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer, canonical bool) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return fmt.Errorf("%w: %v", ErrUnsupportedValue, v.number)
		}
		b, err := json.Marshal(v.number)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		return encodeString(buf, v.str, canonical)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.array {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k, canonical); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.object[k].encode(buf, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedValue, v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string, canonical bool) error {
	if canonical {
		s = norm.NFC.String(s)
	}

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// Flatten writes every scalar in v into a space-separated string. Object
// keys are included ahead of their values so field names are searchable too.
func (v Value) Flatten() string {
	var sb strings.Builder
	v.flatten(&sb)
	return strings.TrimSpace(sb.String())
}

func (v Value) flatten(sb *strings.Builder) {
	switch v.kind {
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.boolean))
		sb.WriteByte(' ')
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.number, 'f', -1, 64))
		sb.WriteByte(' ')
	case KindString:
		sb.WriteString(v.str)
		sb.WriteByte(' ')
	case KindArray:
		for _, item := range v.array {
			item.flatten(sb)
		}
	case KindObject:
		for _, k := range v.Keys() {
			sb.WriteString(k)
			sb.WriteByte(' ')
			v.object[k].flatten(sb)
		}
	}
}
