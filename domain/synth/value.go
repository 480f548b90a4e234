package synth

import "fmt"

// ValueKind is the dtype of a sampled value or an output column.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// ParseValueKind is the inverse of ValueKind.String.
func ParseValueKind(s string) (ValueKind, bool) {
	switch s {
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	}
	return 0, false
}

// Value is one scalar emitted by a Feature.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
}

func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

func FloatValue(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

// Float64 returns the value as a float regardless of kind.
func (v Value) Float64() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func (v Value) String() string {
	if v.Kind == KindInt {
		return fmt.Sprintf("%d", v.Int)
	}
	return fmt.Sprintf("%g", v.Float)
}
