// Package scoring computes the score awarded for a single chain step.
package scoring

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	ErrInvalidChain  = errors.New("chain index must be at least 1")
	ErrUnknownColour = errors.New("unknown tile colour")
)

// Colour identifies a tile colour. At most six are in play per match.
type Colour uint8

const (
	Red Colour = iota
	Blue
	Green
	Purple
	Yellow
	Teal
)

var colourNames = [...]string{"Red", "Blue", "Green", "Purple", "Yellow", "Teal"}

func (c Colour) Valid() bool { return int(c) < len(colourNames) }

func (c Colour) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Colour(%d)", uint8(c))
	}
	return colourNames[c]
}

// ParseColour accepts a colour name as produced by String.
func ParseColour(s string) (Colour, error) {
	for i, name := range colourNames {
		if name == s {
			return Colour(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColour, s)
}

func (c Colour) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColour, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Colour) UnmarshalText(b []byte) error {
	parsed, err := ParseColour(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Palette returns the first n colours, the set a match with n colours draws from.
func Palette(n int) []Colour {
	n = max(0, min(n, len(colourNames)))
	out := make([]Colour, n)
	for i := range out {
		out[i] = Colour(i)
	}
	return out
}

// Tile is one cleared tile.
type Tile struct {
	Colour Colour `json:"colour"`
}

// Tiles builds n tiles of one colour.
func Tiles(c Colour, n int) []Tile {
	return lo.Times(n, func(int) Tile { return Tile{Colour: c} })
}

// ClearEvent is the set of tiles cleared by one step of a chain.
type ClearEvent struct {
	Tiles []Tile `json:"tiles"`
	Chain int    `json:"chain"`
}

// Breakdown exposes the table lookups that produced a score.
type Breakdown struct {
	Tiles       int            `json:"tiles"`
	ChainPower  int            `json:"chain_power"`
	ColourBonus int            `json:"colour_bonus"`
	GroupBonus  int            `json:"group_bonus"`
	Groups      map[Colour]int `json:"groups"`
	Score       int            `json:"score"`
}

// Score returns 10 * |tiles| * (chain power + colour bonus + group bonuses).
//
// Chain indices above MaxChain use the MaxChain power. Groups smaller than
// MinGroupSize add no bonus and groups larger than MaxGroupSize use the
// MaxGroupSize bonus. A chain index below 1 is rejected.
func Score(tiles []Tile, chain int) (int, error) {
	b, err := Explain(tiles, chain)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}

// ScoreEvent scores a ClearEvent.
func ScoreEvent(ev ClearEvent) (int, error) {
	return Score(ev.Tiles, ev.Chain)
}

// Explain is Score with the intermediate lookups attached.
func Explain(tiles []Tile, chain int) (Breakdown, error) {
	if chain < 1 {
		return Breakdown{}, fmt.Errorf("%w, got %d", ErrInvalidChain, chain)
	}
	for _, t := range tiles {
		if !t.Colour.Valid() {
			return Breakdown{}, fmt.Errorf("%w: %d", ErrUnknownColour, uint8(t.Colour))
		}
	}

	groups := lo.CountValuesBy(tiles, func(t Tile) Colour { return t.Colour })
	b := Breakdown{
		Tiles:      len(tiles),
		ChainPower: ChainPower(chain),
		Groups:     groups,
	}
	if len(tiles) == 0 {
		return b, nil
	}

	b.ColourBonus = ColourBonus(len(groups))
	for _, n := range groups {
		b.GroupBonus += GroupBonus(n)
	}
	b.Score = 10 * len(tiles) * (b.ChainPower + b.ColourBonus + b.GroupBonus)
	return b, nil
}
