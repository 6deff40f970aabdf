package nibe

import (
	"fmt"
	"strings"
)

// Width is one of the six integer encodings a register can carry on the
// wire. It is the Go analogue of the Python coil.py "size" string, kept as
// a distinct type; valid() checks membership at construction time, since
// Go does not check the codec switches in codec.go for exhaustiveness.
type Width string

const (
	WidthU8  Width = "u8"
	WidthS8  Width = "s8"
	WidthU16 Width = "u16"
	WidthS16 Width = "s16"
	WidthU32 Width = "u32"
	WidthS32 Width = "s32"
)

func (w Width) valid() bool {
	switch w {
	case WidthU8, WidthS8, WidthU16, WidthS16, WidthU32, WidthS32:
		return true
	}
	return false
}

func (w Width) is32() bool {
	return w == WidthU32 || w == WidthS32
}

func (w Width) signed() bool {
	return w == WidthS8 || w == WidthS16 || w == WidthS32
}

// RegisterType is the semantic interpretation applied to a decoded
// number: a plain number, or a day count relative to the epoch in §3.
type RegisterType string

const (
	TypeNumber RegisterType = "number"
	TypeDate   RegisterType = "date"
)

// Register is an immutable register descriptor, built once by the model
// registry and shared by every RegisterValue bound to it. Fields mirror
// coil.py's Coil constructor plus the invariants §3 adds on top of it
// (separate raw/scaled bounds, derived is_boolean/is_date, a typed "other"
// table instead of **kwargs).
type Register struct {
	Address  uint16
	Name     string
	Title    string
	Width    Width
	Factor   int
	Writable bool

	RawMin *int
	RawMax *int

	Unit string
	Info string

	// Mapping is raw-integer-string -> canonical UPPERCASE label.
	Mapping        map[string]string
	reverseMapping map[string]string

	Type RegisterType

	// Other carries definition fields this module does not interpret,
	// keeping them out of runtime type-sniffing (design note in §9).
	Other map[string]interface{}

	isBoolean bool
}

// NewRegister validates and constructs a Register, enforcing the
// invariants of §3. It is the single place descriptors are created,
// whether from the JSON model registry or directly by a caller such as a
// test (the group descriptors in groups.go reference registers by address
// only).
func NewRegister(address uint16, name, title string, width Width, opts ...RegisterOption) (*Register, error) {
	if name == "" {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("name must be defined")}
	}
	if title == "" {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("title must be defined")}
	}
	if !width.valid() {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("unknown width %q", width)}
	}

	r := &Register{
		Address: address,
		Name:    name,
		Title:   title,
		Width:   width,
		Factor:  1,
		Type:    TypeNumber,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.Factor == 0 {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("%s: factor must not be zero", name)}
	}
	if r.Mapping != nil && r.Factor != 1 {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("%s: factor must be 1 when a mapping is present", name)}
	}
	if r.Type == TypeDate && r.Mapping != nil {
		return nil, &ConfigError{Op: "NewRegister", Err: fmt.Errorf("%s: a date register cannot have a mapping", name)}
	}

	if r.Mapping != nil {
		canonical := make(map[string]string, len(r.Mapping))
		reverse := make(map[string]string, len(r.Mapping))
		for k, v := range r.Mapping {
			label := strings.ToUpper(v)
			canonical[k] = label
			reverse[label] = k
		}
		r.Mapping = canonical
		r.reverseMapping = reverse
	}

	r.isBoolean = computeIsBoolean(r)
	if r.isBoolean && r.Mapping == nil {
		r.Mapping = map[string]string{"0": "OFF", "1": "ON"}
		r.reverseMapping = map[string]string{"OFF": "0", "ON": "1"}
	}

	return r, nil
}

func computeIsBoolean(r *Register) bool {
	if r.Factor != 1 {
		return false
	}
	if r.RawMin != nil && r.RawMax != nil && *r.RawMin == 0 && *r.RawMax == 1 {
		return true
	}
	if r.Mapping != nil {
		for k := range r.Mapping {
			if k != "0" && k != "1" {
				return false
			}
		}
		return true
	}
	return false
}

// RegisterOption configures a Register at construction time.
type RegisterOption func(*Register)

func WithFactor(factor int) RegisterOption { return func(r *Register) { r.Factor = factor } }
func WithWritable(w bool) RegisterOption   { return func(r *Register) { r.Writable = w } }
func WithUnit(u string) RegisterOption     { return func(r *Register) { r.Unit = u } }
func WithInfo(i string) RegisterOption     { return func(r *Register) { r.Info = i } }
func WithType(t RegisterType) RegisterOption { return func(r *Register) { r.Type = t } }
func WithOther(o map[string]interface{}) RegisterOption {
	return func(r *Register) { r.Other = o }
}

func WithRawMin(min int) RegisterOption {
	return func(r *Register) { v := min; r.RawMin = &v }
}

func WithRawMax(max int) RegisterOption {
	return func(r *Register) { v := max; r.RawMax = &v }
}

func WithMapping(m map[string]string) RegisterOption {
	return func(r *Register) {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		r.Mapping = cp
	}
}

// IsBoolean reports whether this register is, semantically, an ON/OFF
// flag — factor 1 and either raw bounds [0,1] or a {"0","1"} mapping.
func (r *Register) IsBoolean() bool { return r.isBoolean }

// IsDate reports whether this register's raw value is a day offset.
func (r *Register) IsDate() bool { return r.Type == TypeDate }

// ScaledMin and ScaledMax return the engineering-unit bounds, computed
// once from RawMin/RawMax and Factor. The second return is false when no
// bound was configured in that direction.
func (r *Register) ScaledMin() (float64, bool) {
	if r.RawMin == nil {
		return 0, false
	}
	return float64(*r.RawMin) / float64(r.Factor), true
}

func (r *Register) ScaledMax() (float64, bool) {
	if r.RawMax == nil {
		return 0, false
	}
	return float64(*r.RawMax) / float64(r.Factor), true
}

// IsRawInRange reports whether raw is within [RawMin, RawMax], only
// constraining in the directions where a bound is actually configured.
func (r *Register) IsRawInRange(raw int) bool {
	if r.RawMin != nil && raw < *r.RawMin {
		return false
	}
	if r.RawMax != nil && raw > *r.RawMax {
		return false
	}
	return true
}

// MappingFor returns the canonical uppercase label for a raw integer, per
// §4.1.
func (r *Register) MappingFor(raw int) (string, bool) {
	if r.Mapping == nil {
		return "", false
	}
	label, ok := r.Mapping[fmt.Sprintf("%d", raw)]
	return label, ok
}

// ReverseMappingFor returns the raw integer for a label, case-insensitive
// per §4.1 (the label is uppercased before lookup).
func (r *Register) ReverseMappingFor(label string) (int, bool) {
	if r.reverseMapping == nil {
		return 0, false
	}
	raw, ok := r.reverseMapping[strings.ToUpper(label)]
	if !ok {
		return 0, false
	}
	var v int
	_, err := fmt.Sscanf(raw, "%d", &v)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r *Register) String() string {
	return fmt.Sprintf("Register %d, name: %s, title: %s", r.Address, r.Name, r.Title)
}
