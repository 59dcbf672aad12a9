package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the permitted value types:
// IRNull, IRString, IRInt, IRBool, IRArray and IRObject.
type IRValue interface {
	irValue()
}

// IRNull is an explicit SQL NULL / absent value.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString is a text value.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean value. Stores persist it as 0/1.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject maps field names to values. A store row is an IRObject.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// Int returns the integer stored under field. Booleans read as 0/1 so that
// flags stored as integers compare the same way in every store.
func (obj IRObject) Int(field string) (int64, bool) {
	switch v := obj[field].(type) {
	case IRInt:
		return int64(v), true
	case IRBool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Clone returns a shallow copy of obj.
func (obj IRObject) Clone() IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// FromAny converts a decoded JSON/YAML scalar into an IRValue.
// Floats are accepted only when they hold an exact integer, since JSON
// decoders without UseNumber produce float64 for every number.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer out of range: %d", val)
		}
		return IRInt(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("non-integer number %v", val)
		}
		return IRInt(int64(val)), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			iv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = iv
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			iv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = iv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToParam converts a scalar IRValue into a database/sql parameter.
func ToParam(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRNull:
		return nil, nil
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("not a scalar value: %T", v)
	}
}

// Compare orders two scalar values. Integers and booleans compare
// numerically with each other; strings compare bytewise. NULL sorts first.
// Comparing a string with a number is an error.
func Compare(a, b IRValue) (int, error) {
	_, aNull := a.(IRNull)
	_, bNull := b.(IRNull)
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return -1, nil
	case bNull:
		return 1, nil
	}

	if as, ok := a.(IRString); ok {
		bs, ok := b.(IRString)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		}
		return 0, nil
	}

	an, ok := numeric(a)
	if !ok {
		return 0, fmt.Errorf("cannot compare %T", a)
	}
	bn, ok := numeric(b)
	if !ok {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	switch {
	case an < bn:
		return -1, nil
	case an > bn:
		return 1, nil
	}
	return 0, nil
}

func numeric(v IRValue) (int64, bool) {
	switch val := v.(type) {
	case IRInt:
		return int64(val), true
	case IRBool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
