// Package nuisance turns chain score into attack units sent to opponents.
package nuisance

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidTarget = errors.New("invalid configuration: target points must be at least 1")
	ErrNegativeScore = errors.New("score delta must be non-negative")
	ErrInvalidCarry  = errors.New("carry must be in [0, 1)")
)

// Result is the outcome of one conversion.
type Result struct {
	Units int     `json:"units"`
	Carry float64 `json:"carry"`
}

// Convert divides scoreDelta by targetPoints, adds the carried fraction and
// splits the total into whole units and a new carry.
//
// Arithmetic is plain float64 so every peer computes the same carry bits.
func Convert(scoreDelta, targetPoints int, carryIn float64) (Result, error) {
	if targetPoints <= 0 {
		return Result{}, fmt.Errorf("%w, got %d", ErrInvalidTarget, targetPoints)
	}
	if scoreDelta < 0 {
		return Result{}, fmt.Errorf("%w, got %d", ErrNegativeScore, scoreDelta)
	}
	if math.IsNaN(carryIn) || carryIn < 0 || carryIn >= 1 {
		return Result{}, fmt.Errorf("%w, got %v", ErrInvalidCarry, carryIn)
	}

	total := float64(scoreDelta)/float64(targetPoints) + carryIn
	units := math.Floor(total)
	return Result{Units: int(units), Carry: total - units}, nil
}

// Ledger accumulates the carry for one player across the chains of a match.
// The zero value is ready to use.
type Ledger struct {
	Carry float64 `json:"carry"`
	Sent  int     `json:"sent"`
}

// Add converts scoreDelta against targetPoints and folds the result into the
// ledger. The ledger is unchanged on error.
func (l *Ledger) Add(scoreDelta, targetPoints int) (int, error) {
	res, err := Convert(scoreDelta, targetPoints, l.Carry)
	if err != nil {
		return 0, err
	}
	l.Carry = res.Carry
	l.Sent += res.Units
	return res.Units, nil
}
