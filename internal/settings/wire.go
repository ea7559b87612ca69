package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WireFields is the number of space separated fields in the wire form.
const WireFields = 10

var ErrMalformedSettings = errors.New("malformed settings string")

// Serialize renders the configuration as
//
//	<gamemode> <gravity> <rows> <cols> <softDrop> <numColours> <targetPoints> <marginTimeMs> <minChain> <seed>
//
// Floats are written in plain decimal notation with the fewest digits that
// parse back to the same float64, with no exponent and no locale.
func (s MatchSettings) Serialize() string {
	fields := [WireFields]string{
		string(s.Gamemode),
		FormatFloat(s.Gravity),
		strconv.Itoa(s.Rows),
		strconv.Itoa(s.Cols),
		FormatFloat(s.SoftDrop),
		strconv.Itoa(s.NumColours),
		strconv.Itoa(s.TargetPoints),
		strconv.FormatInt(s.MarginTime.Milliseconds(), 10),
		strconv.Itoa(s.MinChain),
		FormatFloat(s.Seed),
	}
	return strings.Join(fields[:], " ")
}

func (s MatchSettings) String() string { return s.Serialize() }

// Deserialize decodes a wire string. The margin clock of the result is
// unarmed. Range constraints are not checked; see Validate.
func Deserialize(wire string) (MatchSettings, error) {
	tokens := strings.Fields(wire)
	if len(tokens) != WireFields {
		return MatchSettings{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedSettings, WireFields, len(tokens))
	}

	p := wireParser{tokens: tokens}
	s := MatchSettings{
		Gamemode:     Gamemode(tokens[0]),
		Gravity:      p.floatAt(1, "gravity"),
		Rows:         p.intAt(2, "rows"),
		Cols:         p.intAt(3, "cols"),
		SoftDrop:     p.floatAt(4, "softDrop"),
		NumColours:   p.intAt(5, "numColours"),
		TargetPoints: p.intAt(6, "targetPoints"),
		MarginTime:   time.Duration(p.intAt(7, "marginTime")) * time.Millisecond,
		MinChain:     p.intAt(8, "minChain"),
		Seed:         p.floatAt(9, "seed"),
	}
	if p.err != nil {
		return MatchSettings{}, p.err
	}
	return s, nil
}

// wireParser records the first failing field and ignores the rest.
type wireParser struct {
	tokens []string
	err    error
}

func (p *wireParser) floatAt(i int, field string) float64 {
	if p.err != nil {
		return 0
	}
	f, err := ParseFloat(p.tokens[i])
	if err != nil {
		p.err = fmt.Errorf("%w: field %d (%s): %w", ErrMalformedSettings, i, field, err)
	}
	return f
}

func (p *wireParser) intAt(i int, field string) int {
	if p.err != nil {
		return 0
	}
	n, err := parseInt(p.tokens[i])
	if err != nil {
		p.err = fmt.Errorf("%w: field %d (%s): %w", ErrMalformedSettings, i, field, err)
	}
	return n
}

// FormatFloat renders f in the wire float format.
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return decimal.NewFromFloat(f).String()
}

// ParseFloat parses a decimal number. NaN and infinities are rejected.
func ParseFloat(tok string) (float64, error) {
	d, err := parseDecimal(tok)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q overflows float64", tok)
	}
	return f, nil
}

func parseInt(tok string) (int, error) {
	d, err := parseDecimal(tok)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not an integer", tok)
	}
	if d.Abs().GreaterThan(maxWireInt) {
		return 0, fmt.Errorf("%q is too large", tok)
	}
	return int(d.IntPart()), nil
}

var maxWireInt = decimal.NewFromInt(math.MaxInt32)

// maxExponent bounds the decimal exponent of a token. Comparing or
// converting a decimal costs time proportional to 10^|exp|, and nothing
// outside this range fits a float64.
const maxExponent = 400

func parseDecimal(tok string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q is not a number", tok)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Decimal{}, fmt.Errorf("%q is out of range", tok)
	}
	return d, nil
}
