// Package settings holds the match configuration every peer shares, its
// wire encoding, and the builder that turns raw form input into it.
//
// A MatchSettings produced by Builder or decoded from a wire string built by
// Serialize satisfies every range constraint. Values assigned directly to the
// struct fields bypass those checks; the behaviour of such a value anywhere
// in the rules core is undefined. Call Validate when in doubt.
package settings

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/MJE43/puyobattle/internal/margin"
)

// Gamemode selects the clear rules used by the board engine.
type Gamemode string

const (
	Tsu   Gamemode = "Tsu"
	Fever Gamemode = "Fever"
)

func (g Gamemode) Valid() bool { return g == Tsu || g == Fever }

// Fixed rules shared by every match. They are not carried on the wire.
const (
	LockDelay         = 200 * time.Millisecond
	FramesPerRotation = 8
	Rotate180Time     = 200 * time.Millisecond
	HashSnapFactor    = 100
	HashRotFactor     = 50
)

// Ranges accepted by the builder.
const (
	MinRows       = 6
	MaxRows       = 100
	MinCols       = 3
	MaxCols       = 50
	MinNumColours = 1
	MaxNumColours = 6
	MinTarget     = 1
)

// Defaults used for any field left unset.
const (
	DefaultGamemode     = Tsu
	DefaultGravity      = 0.036
	DefaultRows         = 12
	DefaultCols         = 6
	DefaultSoftDrop     = 0.27
	DefaultNumColours   = 4
	DefaultTargetPoints = 70
	DefaultMarginTime   = 96 * time.Second
	DefaultMinChain     = 0
)

var ErrOutOfRange = errors.New("settings out of range")

// MatchSettings is one peer's copy of the match configuration. Only the
// owning peer's game loop mutates it, through Tick.
type MatchSettings struct {
	Gamemode     Gamemode      `json:"gamemode"`
	Gravity      float64       `json:"gravity"`
	Rows         int           `json:"rows"`
	Cols         int           `json:"cols"`
	SoftDrop     float64       `json:"soft_drop"`
	NumColours   int           `json:"num_colours"`
	TargetPoints int           `json:"target_points"`
	MarginTime   time.Duration `json:"margin_time"`
	MinChain     int           `json:"min_chain"`
	Seed         float64       `json:"seed"`

	Clock margin.Clock `json:"clock"`
}

// Default returns the default configuration with the given seed.
func Default(seed float64) MatchSettings {
	return MatchSettings{
		Gamemode:     DefaultGamemode,
		Gravity:      DefaultGravity,
		Rows:         DefaultRows,
		Cols:         DefaultCols,
		SoftDrop:     DefaultSoftDrop,
		NumColours:   DefaultNumColours,
		TargetPoints: DefaultTargetPoints,
		MarginTime:   DefaultMarginTime,
		MinChain:     DefaultMinChain,
		Seed:         seed,
	}
}

// New returns the default configuration with a fresh random seed.
func New() MatchSettings {
	return Default(RandomSeed())
}

// RandomSeed draws a seed in [0, 1).
func RandomSeed() float64 {
	return rand.Float64()
}

// NuisanceSpawnRow is the hidden row nuisance tiles are dropped from.
func (s MatchSettings) NuisanceSpawnRow() int {
	return s.Rows + 2
}

// Tick advances the margin clock to now, lowering TargetPoints as needed.
func (s *MatchSettings) Tick(now time.Time) []margin.Reduction {
	var applied []margin.Reduction
	s.Clock, s.TargetPoints, applied = margin.Step(s.Clock, s.MarginTime, s.TargetPoints, now)
	return applied
}

// StartClock anchors the margin clock at now, discarding any progress.
func (s *MatchSettings) StartClock(now time.Time) {
	s.Clock = margin.Arm(now)
}

// Validate reports the first field outside the range the builder enforces.
func (s MatchSettings) Validate() error {
	switch {
	case !s.Gamemode.Valid():
		return fmt.Errorf("%w: gamemode %q", ErrOutOfRange, s.Gamemode)
	case !nonNegative(s.Gravity):
		return fmt.Errorf("%w: gravity %v", ErrOutOfRange, s.Gravity)
	case s.Rows < MinRows || s.Rows > MaxRows:
		return fmt.Errorf("%w: rows %d not in [%d, %d]", ErrOutOfRange, s.Rows, MinRows, MaxRows)
	case s.Cols < MinCols || s.Cols > MaxCols:
		return fmt.Errorf("%w: cols %d not in [%d, %d]", ErrOutOfRange, s.Cols, MinCols, MaxCols)
	case !nonNegative(s.SoftDrop):
		return fmt.Errorf("%w: soft drop %v", ErrOutOfRange, s.SoftDrop)
	case s.NumColours < MinNumColours || s.NumColours > MaxNumColours:
		return fmt.Errorf("%w: colours %d not in [%d, %d]", ErrOutOfRange, s.NumColours, MinNumColours, MaxNumColours)
	case s.TargetPoints < MinTarget:
		return fmt.Errorf("%w: target points %d", ErrOutOfRange, s.TargetPoints)
	case s.MarginTime < 0 || s.MarginTime%time.Millisecond != 0:
		return fmt.Errorf("%w: margin time %v", ErrOutOfRange, s.MarginTime)
	case s.MinChain < 0:
		return fmt.Errorf("%w: min chain %d", ErrOutOfRange, s.MinChain)
	case !(s.Seed >= 0 && s.Seed < 1):
		return fmt.Errorf("%w: seed %v", ErrOutOfRange, s.Seed)
	}
	return nil
}

func nonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 1)
}
