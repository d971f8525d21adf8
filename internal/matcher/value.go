package matcher

import (
	"strconv"
)

// ValueKind is the type of a probe result field.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// FieldValue is the single probe result attribute a matcher inspects.
type FieldValue struct {
	Field string
	Kind  ValueKind
	Str   string
	Int   int
	Bool  bool
}

// String builds a string-typed value.
func String(field, value string) FieldValue {
	return FieldValue{Field: field, Kind: KindString, Str: value}
}

// Int builds an integer-typed value.
func Int(field string, value int) FieldValue {
	return FieldValue{Field: field, Kind: KindInt, Int: value}
}

// Bool builds a boolean-typed value.
func Bool(field string, value bool) FieldValue {
	return FieldValue{Field: field, Kind: KindBool, Bool: value}
}

// Render formats the value for diagnostics. Strings are quoted so whitespace is visible.
func (v FieldValue) Render() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return strconv.Quote(v.Str)
	}
}
