package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	cbor "github.com/fxamacker/cbor/v2"
)

// ValueKind enumerates the shapes a ModelValue can take.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// ModelValue is a string, number, or bool parameter value.
type ModelValue struct {
	kind   ValueKind
	str    string
	number float64
	flag   bool
}

// String builds a string value.
func String(v string) ModelValue { return ModelValue{kind: KindString, str: v} }

// Number builds a numeric value.
func Number(v float64) ModelValue { return ModelValue{kind: KindNumber, number: v} }

// Bool builds a boolean value.
func Bool(v bool) ModelValue { return ModelValue{kind: KindBool, flag: v} }

// Kind reports which variant the value holds.
func (v ModelValue) Kind() ValueKind { return v.kind }

// Float64 converts the value to a number; strings do not convert.
func (v ModelValue) Float64() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.number, true
	case KindBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Int64 converts the value to an integer, truncating numbers.
func (v ModelValue) Int64() (int64, bool) {
	f, ok := v.Float64()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool converts the value to a boolean; any non-zero number is true.
func (v ModelValue) Bool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.flag, true
	case KindNumber:
		return v.number != 0, true
	default:
		return false, false
	}
}

// Str returns the string payload of a string value.
func (v ModelValue) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v ModelValue) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return v.str
	}
}

func (v ModelValue) raw() any {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindBool:
		return v.flag
	default:
		return v.str
	}
}

// ValueFromAny converts a decoded scalar (from JSON, CBOR, or TOML) into a ModelValue.
func ValueFromAny(raw any) (ModelValue, error) {
	switch val := raw.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return ModelValue{}, fmt.Errorf("model value %q: %w", val, err)
		}
		return Number(f), nil
	default:
		return ModelValue{}, fmt.Errorf("model value: unsupported type %T", raw)
	}
}

func (v ModelValue) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.number) || math.IsInf(v.number, 0)) {
		return nil, fmt.Errorf("model value: %v is not representable", v.number)
	}
	return json.Marshal(v.raw())
}

func (v *ModelValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v ModelValue) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(v.raw())
}

func (v *ModelValue) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MultiChannelValue holds one optional value per channel; nil entries are unset.
type MultiChannelValue []*ModelValue

// Single builds a value that only sets the given 0-based channel.
func Single(channel int, value ModelValue) MultiChannelValue {
	out := make(MultiChannelValue, channel+1)
	out[channel] = &value
	return out
}

// Uniform builds a value that sets the same value on the first n channels.
func Uniform(n int, value ModelValue) MultiChannelValue {
	out := make(MultiChannelValue, n)
	for i := range out {
		v := value
		out[i] = &v
	}
	return out
}

// Join overlays other onto a copy of m: set channels in other win, and other may extend m.
func (m MultiChannelValue) Join(other MultiChannelValue) MultiChannelValue {
	out := m.Clone()
	for idx, value := range other {
		if idx >= len(out) {
			out = append(out, cloneValue(value))
			continue
		}
		if value != nil {
			out[idx] = cloneValue(value)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m MultiChannelValue) Clone() MultiChannelValue {
	if m == nil {
		return nil
	}
	out := make(MultiChannelValue, len(m))
	for i, value := range m {
		out[i] = cloneValue(value)
	}
	return out
}

// Equal reports whether both values set the same channels to the same values.
func (m MultiChannelValue) Equal(other MultiChannelValue) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		switch {
		case m[i] == nil && other[i] == nil:
		case m[i] == nil || other[i] == nil:
			return false
		case *m[i] != *other[i]:
			return false
		}
	}
	return true
}

// Channels calls fn for every set channel in index order.
func (m MultiChannelValue) Channels(fn func(channel int, value ModelValue)) {
	for idx, value := range m {
		if value != nil {
			fn(idx, *value)
		}
	}
}

func cloneValue(v *ModelValue) *ModelValue {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
