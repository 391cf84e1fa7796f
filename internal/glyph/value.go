package glyph

import "encoding/json"

// ValueKind discriminates the variants a belief Value can hold.
type ValueKind int

const (
	// KindAbsent is the structured-absence marker. It is data, not an
	// error: stages treat it as a first-class signal.
	KindAbsent ValueKind = iota
	KindBool
	KindNumber
	KindString
	// KindOpaque carries any other JSON-representable payload, such as
	// coordinate tuples attached by the survey bridge.
	KindOpaque
)

// Value is a tagged union over the belief payloads a State carries.
// The zero Value is the absence marker.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	o    any
}

// Absent returns the structured-absence marker.
func Absent() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Opaque returns a Value wrapping an arbitrary JSON-representable
// payload.
func Opaque(o any) Value { return Value{kind: KindOpaque, o: o} }

// Kind reports which variant the Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the Value is the absence marker.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Bool returns the boolean payload. ok is false for non-boolean
// variants.
func (v Value) Bool() (b, ok bool) { return v.b, v.kind == KindBool }

// Number returns the numeric payload. ok is false for non-numeric
// variants.
func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

// String returns the string payload. ok is false for non-string
// variants.
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }

// Opaque returns the opaque payload. ok is false for other variants.
func (v Value) Opaque() (any, bool) { return v.o, v.kind == KindOpaque }

// Float coerces the Value to a float64, yielding 0 for anything that
// is not a number. UnknownGlyph relies on this when reading stability
// beliefs that may be absent.
func (v Value) Float() float64 {
	if v.kind == KindNumber {
		return v.n
	}
	return 0
}

// MarshalJSON renders the absence marker as null and every other
// variant as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindOpaque:
		return json.Marshal(v.o)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON maps null back to the absence marker and buckets
// objects and arrays into the opaque variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Absent()
	case bool:
		*v = Bool(t)
	case float64:
		*v = Number(t)
	case string:
		*v = String(t)
	default:
		*v = Opaque(t)
	}
	return nil
}
