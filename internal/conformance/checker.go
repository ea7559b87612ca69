// Package conformance checks that a JavaScript peer and this implementation
// read each other's settings strings to the same values.
package conformance

import (
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/puyobattle/internal/settings"
)

//go:embed peer.js
var peerSource string

const callTimeout = time.Second

// Mismatch is one field the two sides disagree on.
type Mismatch struct {
	Field     settings.Field `json:"field"`
	Direction string         `json:"direction"`
	Want      string         `json:"want"`
	Got       string         `json:"got"`
}

// Report is the outcome of checking one MatchSettings.
type Report struct {
	Wire       string     `json:"wire"`
	PeerWire   string     `json:"peer_wire"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

func (r Report) OK() bool { return len(r.Mismatches) == 0 }

// Checker owns a goja runtime loaded with a peer's settings codec. It is
// safe for concurrent use; calls are serialised.
type Checker struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	decode goja.Callable
	encode goja.Callable
}

// NewChecker loads the built-in reference peer.
func NewChecker() (*Checker, error) {
	return NewCheckerFromSource(peerSource)
}

// NewCheckerFromSource loads a peer codec that defines decodeSettings(wire)
// and encodeSettings(obj).
func NewCheckerFromSource(src string) (*Checker, error) {
	vm := goja.New()
	vm.Set("require", goja.Undefined())
	if _, err := vm.RunString(src); err != nil {
		return nil, fmt.Errorf("load peer codec: %w", err)
	}

	decode, ok := goja.AssertFunction(vm.Get("decodeSettings"))
	if !ok {
		return nil, fmt.Errorf("peer codec does not define decodeSettings")
	}
	encode, ok := goja.AssertFunction(vm.Get("encodeSettings"))
	if !ok {
		return nil, fmt.Errorf("peer codec does not define encodeSettings")
	}
	return &Checker{vm: vm, decode: decode, encode: encode}, nil
}

// Check serialises s, lets the peer decode it and re-encode it, and compares
// both directions field by field.
func (c *Checker) Check(s settings.MatchSettings) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wire := s.Serialize()
	rep := Report{Wire: wire}

	decoded, err := c.call(c.decode, c.vm.ToValue(wire))
	if err != nil {
		return rep, fmt.Errorf("peer decode: %w", err)
	}
	if goja.IsUndefined(decoded) || goja.IsNull(decoded) {
		return rep, fmt.Errorf("peer decode returned %s", decoded)
	}
	obj := decoded.ToObject(c.vm)
	for _, f := range numericFields(s) {
		got := numberOf(obj, f.field)
		if got != f.value {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				Field:     f.field,
				Direction: "go->peer",
				Want:      settings.FormatFloat(f.value),
				Got:       settings.FormatFloat(got),
			})
		}
	}
	if mode := stringOf(obj, settings.FieldGamemode); mode != string(s.Gamemode) {
		rep.Mismatches = append(rep.Mismatches, Mismatch{
			Field: settings.FieldGamemode, Direction: "go->peer", Want: string(s.Gamemode), Got: mode,
		})
	}

	encoded, err := c.call(c.encode, decoded)
	if err != nil {
		return rep, fmt.Errorf("peer encode: %w", err)
	}
	rep.PeerWire = encoded.String()

	back, err := settings.Deserialize(rep.PeerWire)
	if err != nil {
		return rep, fmt.Errorf("decode peer wire %q: %w", rep.PeerWire, err)
	}
	backFields := numericFields(back)
	for i, f := range numericFields(s) {
		if backFields[i].value != f.value {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				Field:     f.field,
				Direction: "peer->go",
				Want:      settings.FormatFloat(f.value),
				Got:       settings.FormatFloat(backFields[i].value),
			})
		}
	}
	return rep, nil
}

// PeerFormat returns the peer's own String() rendering of f.
func (c *Checker) PeerFormat(f float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	str, ok := goja.AssertFunction(c.vm.Get("String"))
	if !ok {
		return "", fmt.Errorf("peer runtime has no String function")
	}
	v, err := c.call(str, c.vm.ToValue(f))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v.String()), nil
}

func (c *Checker) call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	defer c.vm.ClearInterrupt()
	timer := time.AfterFunc(callTimeout, func() { c.vm.Interrupt("peer codec timed out") })
	defer timer.Stop()
	return fn(goja.Undefined(), args...)
}

func numberOf(obj *goja.Object, f settings.Field) float64 {
	v := obj.Get(string(f))
	if v == nil {
		return math.NaN()
	}
	return v.ToFloat()
}

func stringOf(obj *goja.Object, f settings.Field) string {
	v := obj.Get(string(f))
	if v == nil {
		return ""
	}
	return v.String()
}

type numericField struct {
	field settings.Field
	value float64
}

func numericFields(s settings.MatchSettings) []numericField {
	return []numericField{
		{settings.FieldGravity, s.Gravity},
		{settings.FieldRows, float64(s.Rows)},
		{settings.FieldCols, float64(s.Cols)},
		{settings.FieldSoftDrop, s.SoftDrop},
		{settings.FieldNumColours, float64(s.NumColours)},
		{settings.FieldTargetPoints, float64(s.TargetPoints)},
		{settings.FieldMarginTime, float64(s.MarginTime.Milliseconds())},
		{settings.FieldMinChain, float64(s.MinChain)},
		{settings.FieldSeed, s.Seed},
	}
}
