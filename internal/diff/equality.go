package diff

import (
	"math"
	"strings"

	"github.com/nconklindev/sheetdiff/internal/table"
)

// Equality decides whether two cells match. It is only consulted when at
// least one of the two cells is non-null.
type Equality func(a, b table.Value) bool

// Strict requires the same kind and the same payload: no trimming, no case
// folding, no numeric tolerance.
func Strict(a, b table.Value) bool {
	return a.Equal(b)
}

// Tolerance configures the relaxed comparison returned by Tolerant.
type Tolerance struct {
	TrimSpace    bool    // ignore leading/trailing whitespace in text
	FoldCase     bool    // compare text case-insensitively
	Epsilon      float64 // maximum absolute difference between numbers
	UnifyNumeric bool    // compare integers and floats by numeric value
}

// Tolerant returns an Equality that forgives the differences enabled in t.
// This deliberately departs from Strict and must be opted into.
func Tolerant(t Tolerance) Equality {
	return func(a, b table.Value) bool {
		if a.Equal(b) {
			return true
		}

		if as, ok := a.AsText(); ok {
			bs, ok := b.AsText()
			if !ok {
				return false
			}
			if t.TrimSpace {
				as, bs = strings.TrimSpace(as), strings.TrimSpace(bs)
			}
			if t.FoldCase {
				return strings.EqualFold(as, bs)
			}
			return as == bs
		}

		af, aok := number(a)
		bf, bok := number(b)
		if !aok || !bok {
			return false
		}
		if !t.UnifyNumeric && a.Kind() != b.Kind() {
			return false
		}
		return math.Abs(af-bf) <= t.Epsilon
	}
}

func number(v table.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	return 0, false
}

// Option customizes a comparison.
type Option func(*options)

type options struct {
	equal Equality
}

// WithEquality replaces the default Strict comparison.
func WithEquality(eq Equality) Option {
	return func(o *options) {
		if eq != nil {
			o.equal = eq
		}
	}
}

func newOptions(opts []Option) options {
	o := options{equal: Strict}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
