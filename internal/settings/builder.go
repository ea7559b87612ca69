package settings

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names a configurable setting.
type Field string

const (
	FieldGamemode     Field = "gamemode"
	FieldGravity      Field = "gravity"
	FieldRows         Field = "rows"
	FieldCols         Field = "cols"
	FieldSoftDrop     Field = "softDrop"
	FieldNumColours   Field = "numColours"
	FieldTargetPoints Field = "targetPoints"
	FieldMarginTime   Field = "marginTime"
	FieldMinChain     Field = "minChain"
	FieldSeed         Field = "seed"
)

// Fields lists every field in wire order.
var Fields = []Field{
	FieldGamemode, FieldGravity, FieldRows, FieldCols, FieldSoftDrop,
	FieldNumColours, FieldTargetPoints, FieldMarginTime, FieldMinChain, FieldSeed,
}

// FieldStatus is the outcome of validating one raw input.
type FieldStatus string

const (
	StatusAccepted FieldStatus = "accepted"
	StatusRejected FieldStatus = "rejected"
	StatusAbsent   FieldStatus = "absent"
)

// FieldResult is the per-field validation record kept by the builder.
type FieldResult struct {
	Field  Field       `json:"field"`
	Raw    string      `json:"raw,omitempty"`
	Status FieldStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Defaulted reports whether Build fell back to the default for this field.
func (r FieldResult) Defaulted() bool { return r.Status != StatusAccepted }

// Builder collects raw user input one field at a time. Invalid input never
// fails the build: the field falls back to its default and the rejection is
// recorded in Results.
type Builder struct {
	settings MatchSettings
	results  map[Field]FieldResult
	seed     func() float64
}

// Option configures a Builder.
type Option func(*Builder)

// WithSeedSource sets where Build draws the seed from when none was given.
func WithSeedSource(fn func() float64) Option {
	return func(b *Builder) { b.seed = fn }
}

// WithSeed fixes the seed drawn when none was given.
func WithSeed(seed float64) Option {
	return WithSeedSource(func() float64 { return seed })
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		results: make(map[Field]FieldResult, len(Fields)),
		seed:    RandomSeed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) SetGamemode(raw string) *Builder {
	v := strings.TrimSpace(raw)
	if v == "" {
		return b.absent(FieldGamemode, raw)
	}
	for _, g := range []Gamemode{Tsu, Fever} {
		if strings.EqualFold(v, string(g)) {
			b.settings.Gamemode = g
			return b.accept(FieldGamemode, raw)
		}
	}
	return b.reject(FieldGamemode, raw, fmt.Sprintf("unknown gamemode %q", v))
}

func (b *Builder) SetGravity(raw string) *Builder {
	return b.setFloat(FieldGravity, raw, &b.settings.Gravity)
}

func (b *Builder) SetSoftDrop(raw string) *Builder {
	return b.setFloat(FieldSoftDrop, raw, &b.settings.SoftDrop)
}

func (b *Builder) SetRows(raw string) *Builder {
	return b.setInt(FieldRows, raw, MinRows, MaxRows, &b.settings.Rows)
}

func (b *Builder) SetCols(raw string) *Builder {
	return b.setInt(FieldCols, raw, MinCols, MaxCols, &b.settings.Cols)
}

func (b *Builder) SetNumColours(raw string) *Builder {
	return b.setInt(FieldNumColours, raw, MinNumColours, MaxNumColours, &b.settings.NumColours)
}

// SetTargetPoints has no upper bound of its own. The MaxInt32 ceiling is the
// limit on any integer token of the wire format, so the built settings
// always survive a round trip.
func (b *Builder) SetTargetPoints(raw string) *Builder {
	return b.setInt(FieldTargetPoints, raw, MinTarget, math.MaxInt32, &b.settings.TargetPoints)
}

// SetMarginTime takes seconds. Fractions below a millisecond are dropped.
func (b *Builder) SetMarginTime(raw string) *Builder {
	d, ok := b.nonNegative(FieldMarginTime, raw)
	if !ok {
		return b
	}
	ms := d.Shift(3).Floor()
	if ms.GreaterThan(maxWireInt) {
		return b.reject(FieldMarginTime, raw, "too large")
	}
	b.settings.MarginTime = time.Duration(ms.IntPart()) * time.Millisecond
	return b.accept(FieldMarginTime, raw)
}

// SetMinChain floors fractional input.
func (b *Builder) SetMinChain(raw string) *Builder {
	d, ok := b.nonNegative(FieldMinChain, raw)
	if !ok {
		return b
	}
	n := d.Floor()
	if n.GreaterThan(maxWireInt) {
		return b.reject(FieldMinChain, raw, "too large")
	}
	b.settings.MinChain = int(n.IntPart())
	return b.accept(FieldMinChain, raw)
}

func (b *Builder) SetSeed(raw string) *Builder {
	d, ok := b.nonNegative(FieldSeed, raw)
	if !ok {
		return b
	}
	f, _ := d.Float64()
	if f >= 1 {
		return b.reject(FieldSeed, raw, "must be below 1")
	}
	b.settings.Seed = f
	return b.accept(FieldSeed, raw)
}

// Set dispatches on a field name, for callers holding a form as a map.
func (b *Builder) Set(field Field, raw string) *Builder {
	switch field {
	case FieldGamemode:
		return b.SetGamemode(raw)
	case FieldGravity:
		return b.SetGravity(raw)
	case FieldRows:
		return b.SetRows(raw)
	case FieldCols:
		return b.SetCols(raw)
	case FieldSoftDrop:
		return b.SetSoftDrop(raw)
	case FieldNumColours:
		return b.SetNumColours(raw)
	case FieldTargetPoints:
		return b.SetTargetPoints(raw)
	case FieldMarginTime:
		return b.SetMarginTime(raw)
	case FieldMinChain:
		return b.SetMinChain(raw)
	case FieldSeed:
		return b.SetSeed(raw)
	}
	return b
}

// Result returns the validation record for one field.
func (b *Builder) Result(field Field) FieldResult {
	if r, ok := b.results[field]; ok {
		return r
	}
	return FieldResult{Field: field, Status: StatusAbsent}
}

// Results returns the validation record of every field in wire order.
func (b *Builder) Results() []FieldResult {
	out := make([]FieldResult, len(Fields))
	for i, f := range Fields {
		out[i] = b.Result(f)
	}
	return out
}

// Rejected returns only the fields whose input was refused.
func (b *Builder) Rejected() []FieldResult {
	var out []FieldResult
	for _, r := range b.Results() {
		if r.Status == StatusRejected {
			out = append(out, r)
		}
	}
	return out
}

// Resolve substitutes defaults for every field not accepted and returns the
// settings together with the field results that produced them.
func (b *Builder) Resolve() (MatchSettings, []FieldResult) {
	s := Default(0)
	v := b.settings
	accepted := func(f Field) bool { return b.Result(f).Status == StatusAccepted }

	if accepted(FieldGamemode) {
		s.Gamemode = v.Gamemode
	}
	if accepted(FieldGravity) {
		s.Gravity = v.Gravity
	}
	if accepted(FieldRows) {
		s.Rows = v.Rows
	}
	if accepted(FieldCols) {
		s.Cols = v.Cols
	}
	if accepted(FieldSoftDrop) {
		s.SoftDrop = v.SoftDrop
	}
	if accepted(FieldNumColours) {
		s.NumColours = v.NumColours
	}
	if accepted(FieldTargetPoints) {
		s.TargetPoints = v.TargetPoints
	}
	if accepted(FieldMarginTime) {
		s.MarginTime = v.MarginTime
	}
	if accepted(FieldMinChain) {
		s.MinChain = v.MinChain
	}
	if accepted(FieldSeed) {
		s.Seed = v.Seed
	} else {
		s.Seed = b.seed()
	}
	return s, b.Results()
}

// Build is Resolve without the field results.
func (b *Builder) Build() MatchSettings {
	s, _ := b.Resolve()
	return s
}

func (b *Builder) setFloat(field Field, raw string, dst *float64) *Builder {
	d, ok := b.nonNegative(field, raw)
	if !ok {
		return b
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return b.reject(field, raw, "too large")
	}
	*dst = f
	return b.accept(field, raw)
}

func (b *Builder) setInt(field Field, raw string, lo, hi int, dst *int) *Builder {
	d, ok := b.number(field, raw)
	if !ok {
		return b
	}
	if !d.IsInteger() {
		return b.reject(field, raw, "not an integer")
	}
	if d.LessThan(decimal.NewFromInt(int64(lo))) || d.GreaterThan(decimal.NewFromInt(int64(hi))) {
		return b.reject(field, raw, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	*dst = int(d.IntPart())
	return b.accept(field, raw)
}

func (b *Builder) nonNegative(field Field, raw string) (decimal.Decimal, bool) {
	d, ok := b.number(field, raw)
	if ok && d.IsNegative() {
		b.reject(field, raw, "must not be negative")
		return d, false
	}
	return d, ok
}

// number parses raw, recording absent or rejected when it is not a number.
func (b *Builder) number(field Field, raw string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		b.absent(field, raw)
		return decimal.Decimal{}, false
	}
	d, err := parseDecimal(v)
	if err != nil {
		b.reject(field, raw, err.Error())
		return decimal.Decimal{}, false
	}
	return d, true
}

func (b *Builder) accept(field Field, raw string) *Builder {
	b.results[field] = FieldResult{Field: field, Raw: raw, Status: StatusAccepted}
	return b
}

func (b *Builder) reject(field Field, raw, reason string) *Builder {
	b.results[field] = FieldResult{Field: field, Raw: raw, Status: StatusRejected, Reason: reason}
	return b
}

func (b *Builder) absent(field Field, raw string) *Builder {
	b.results[field] = FieldResult{Field: field, Raw: raw, Status: StatusAbsent}
	return b
}
