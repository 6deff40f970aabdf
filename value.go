package nibe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateEpoch is the "days since" reference date used by date-typed
// registers, per §3.
var DateEpoch = time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)

// Kind distinguishes the possible contents of a Value.
type Kind int

const (
	KindUnset Kind = iota
	KindInt
	KindFloat
	KindLabel
	KindDate
)

// Value is the mutable carrier bound to a Register descriptor, the Go
// analogue of coil.py's Coil.value / CoilData. A Value never outlives the
// Register it was built from; Registers are immutable and owned by the
// model registry, Values are created per read/write and discarded.
type Value struct {
	Register *Register

	kind  Kind
	ival  int64
	fval  float64
	label string
	date  time.Time
}

// Unset returns an unset Value bound to reg, the starting point before a
// decode populates it or before a caller sets a value to write.
func Unset(reg *Register) Value {
	return Value{Register: reg, kind: KindUnset}
}

// NewIntValue builds a Value carrying a plain integer (used for
// unscaled, unmapped registers such as factor=1 counters).
func NewIntValue(reg *Register, v int64) Value {
	return Value{Register: reg, kind: KindInt, ival: v}
}

// NewFloatValue builds a Value carrying a scaled engineering-unit number.
func NewFloatValue(reg *Register, v float64) Value {
	return Value{Register: reg, kind: KindFloat, fval: v}
}

// NewLabelValue builds a Value carrying a mapped label. The label is
// uppercased, matching the canonical form mapping tables are stored in.
func NewLabelValue(reg *Register, label string) Value {
	return Value{Register: reg, kind: KindLabel, label: strings.ToUpper(label)}
}

// NewDateValue builds a Value carrying a calendar date.
func NewDateValue(reg *Register, t time.Time) Value {
	return Value{Register: reg, kind: KindDate, date: t}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsUnset() bool { return v.kind == KindUnset }

func (v Value) Int() (int64, bool)      { return v.ival, v.kind == KindInt }
func (v Value) Float() (float64, bool)  { return v.fval, v.kind == KindFloat }
func (v Value) Label() (string, bool)   { return v.label, v.kind == KindLabel }
func (v Value) Date() (time.Time, bool) { return v.date, v.kind == KindDate }

// Number returns the engineering-unit numeric content regardless of
// whether it was stored as an int or a float, for callers that only care
// about the magnitude (e.g. bounds reporting).
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.ival), true
	case KindFloat:
		return v.fval, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case KindUnset:
		return "<unset>"
	case KindInt:
		return strconv.FormatInt(v.ival, 10)
	case KindFloat:
		return strconv.FormatFloat(v.fval, 'g', -1, 64)
	case KindLabel:
		return v.label
	case KindDate:
		return v.date.Format("2006-01-02")
	}
	return "<invalid>"
}

// Validate reports whether v can legally be put on the wire for its
// Register: not unset, the right kind for the descriptor, within bounds,
// and (for labeled registers) a known label. This is coil.py's value
// setter assertion plus encoders.py's bounds check, surfaced as a single
// explicit call instead of a property setter.
func (v Value) Validate() error {
	r := v.Register
	if v.kind == KindUnset {
		return &ValidationError{Register: r.Name, Reason: "value is unset"}
	}

	if r.Mapping != nil {
		label, ok := v.Label()
		if !ok {
			return &ValidationError{Register: r.Name, Reason: fmt.Sprintf("expected a label, got %s", kindName(v.kind))}
		}
		if _, ok := r.ReverseMappingFor(label); !ok {
			return &NoMappingError{Register: r.Name, Value: label}
		}
		return nil
	}

	if r.IsDate() {
		if _, ok := v.Date(); !ok {
			return &ValidationError{Register: r.Name, Reason: fmt.Sprintf("expected a date, got %s", kindName(v.kind))}
		}
		return nil
	}

	n, ok := v.Number()
	if !ok {
		return &ValidationError{Register: r.Name, Reason: fmt.Sprintf("expected a number, got %s", kindName(v.kind))}
	}
	if min, has := r.ScaledMin(); has && n < min {
		return &ValidationError{Register: r.Name, Reason: fmt.Sprintf("%v is smaller than min(%v)", n, min)}
	}
	if max, has := r.ScaledMax(); has && n > max {
		return &ValidationError{Register: r.Name, Reason: fmt.Sprintf("%v is larger than max(%v)", n, max)}
	}
	return nil
}

func kindName(k Kind) string {
	switch k {
	case KindUnset:
		return "unset"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindLabel:
		return "label"
	case KindDate:
		return "date"
	}
	return "invalid"
}

// RawValue produces the integer that belongs on the wire: the inverse
// mapping for labeled registers, value*factor (rounded toward zero) for
// numeric registers, or days-since-epoch for dates.
func (v Value) RawValue() (int, error) {
	if err := v.Validate(); err != nil {
		return 0, err
	}
	r := v.Register

	if r.Mapping != nil {
		label, _ := v.Label()
		raw, _ := r.ReverseMappingFor(label)
		return raw, nil
	}

	if r.IsDate() {
		d, _ := v.Date()
		days := int(d.Sub(DateEpoch).Hours() / 24)
		return days, nil
	}

	n, _ := v.Number()
	raw := int(math.Trunc(n * float64(r.Factor)))
	return raw, nil
}

// FromRaw constructs a Value from a decoded raw integer, per §3: the
// width's sentinel has already been filtered out by the codec layer by
// the time this is called (raw==sentinel never reaches here — callers
// pass ok=false from the codec straight to Unset instead), mapping is
// applied if present, otherwise the value is divided by Factor, and dates
// are computed from the epoch.
func FromRaw(reg *Register, raw int) (Value, error) {
	if reg.Mapping != nil {
		label, ok := reg.MappingFor(raw)
		if !ok {
			return Value{}, &NoMappingError{Register: reg.Name, Value: strconv.Itoa(raw)}
		}
		return NewLabelValue(reg, label), nil
	}

	if reg.IsDate() {
		if raw < 0 || raw > 65534 {
			return Value{}, &ValidationError{Register: reg.Name, Reason: fmt.Sprintf("day offset %d out of range", raw)}
		}
		return NewDateValue(reg, DateEpoch.AddDate(0, 0, raw)), nil
	}

	if !reg.IsRawInRange(raw) {
		return Value{}, &ValidationError{Register: reg.Name, Reason: fmt.Sprintf("raw value %d out of bounds", raw)}
	}

	if reg.Factor != 1 {
		return NewFloatValue(reg, float64(raw)/float64(reg.Factor)), nil
	}
	return NewIntValue(reg, int64(raw)), nil
}
