// Package session runs the rules core for the peers of one match: each peer
// decodes its own settings copy, scores its chains and converts score into
// attack units against its own margin clock.
package session

import (
	"fmt"
	"time"

	"github.com/MJE43/puyobattle/internal/margin"
	"github.com/MJE43/puyobattle/internal/nuisance"
	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/settings"
)

// Peer is one participant's local view of the match.
type Peer struct {
	ID       string                 `json:"id"`
	CPU      *CPU                   `json:"cpu,omitempty"`
	Settings settings.MatchSettings `json:"settings"`
	Score    int                    `json:"score"`
	Ledger   nuisance.Ledger        `json:"ledger"`
	Chains   int                    `json:"chains"`
}

// Attack is the result of one chain.
type Attack struct {
	From         string             `json:"from"`
	Chain        int                `json:"chain"`
	Score        int                `json:"score"`
	TargetPoints int                `json:"target_points"`
	Units        int                `json:"units"`
	Carry        float64            `json:"carry"`
	Withheld     bool               `json:"withheld,omitempty"`
	Reductions   []margin.Reduction `json:"reductions,omitempty"`
}

// NewPeer decodes wire into a fresh settings copy owned by the peer.
func NewPeer(id, wire string) (*Peer, error) {
	s, err := settings.Deserialize(wire)
	if err != nil {
		return nil, fmt.Errorf("peer %s: %w", id, err)
	}
	return &Peer{ID: id, Settings: s}, nil
}

func (p *Peer) IsCPU() bool { return p.CPU != nil }

// Start anchors the peer's margin clock.
func (p *Peer) Start(now time.Time) {
	p.Settings.StartClock(now)
}

// Tick advances the margin clock only.
func (p *Peer) Tick(now time.Time) []margin.Reduction {
	return p.Settings.Tick(now)
}

// ApplyChain scores every step of one chain and converts the total into
// attack units at the target in force at now. Chains shorter than the
// match's minimum chain still score but send nothing and leave the carry
// untouched. On error the peer's score, chain count and ledger are unchanged.
func (p *Peer) ApplyChain(steps []scoring.ClearEvent, now time.Time) (Attack, error) {
	reductions := p.Tick(now)

	total, length := 0, 0
	for _, step := range steps {
		n, err := scoring.ScoreEvent(step)
		if err != nil {
			return Attack{}, fmt.Errorf("peer %s chain %d: %w", p.ID, step.Chain, err)
		}
		total += n
		length = max(length, step.Chain)
	}

	a := Attack{
		From:         p.ID,
		Chain:        length,
		Score:        total,
		TargetPoints: p.Settings.TargetPoints,
		Reductions:   reductions,
	}

	if length < p.Settings.MinChain {
		a.Withheld = true
	} else {
		units, err := p.Ledger.Add(total, p.Settings.TargetPoints)
		if err != nil {
			return Attack{}, fmt.Errorf("peer %s: %w", p.ID, err)
		}
		a.Units = units
	}
	a.Carry = p.Ledger.Carry

	p.Score += total
	if length > 0 {
		p.Chains++
	}
	return a, nil
}
