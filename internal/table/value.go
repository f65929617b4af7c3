package table

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindTime:
		return "datetime"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single spreadsheet cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the null cell.
func Null() Value { return Value{} }

// Text returns a text cell.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point cell. NaN is a missing value in every
// spreadsheet tool we read from, so it becomes null.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a date/time cell.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// Equal reports whether v and o hold the same kind and the same payload.
// Two nulls are equal; values of different kinds never are.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// String renders the cell the way it is shown to users and in prompts.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return "null"
}

// Interface returns the payload as a plain Go value (nil for null).
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && math.IsInf(v.f, 0) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
