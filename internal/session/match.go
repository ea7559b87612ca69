package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/MJE43/puyobattle/internal/margin"
	"github.com/MJE43/puyobattle/internal/scoring"
)

var (
	ErrUnknownPeer     = errors.New("unknown peer")
	ErrNotStarted      = errors.New("match not started")
	ErrAlreadyFinished = errors.New("peer already finished")
	ErrInvalidOutcome  = errors.New("invalid outcome")
)

// Match is one locally hosted match: a human peer plus any CPU peers, each
// holding an independent copy of the same settings.
type Match struct {
	ID      uuid.UUID `json:"id"`
	Wire    string    `json:"wire"`
	Peers   []*Peer   `json:"peers"`
	Started time.Time `json:"started"`

	results map[string]Outcome
}

// Result is the outcome recorded for one peer.
type Result struct {
	PeerID  string  `json:"peer_id"`
	Outcome Outcome `json:"outcome"`
	Event   string  `json:"event"`
}

// Targeted is an attack together with the peers it is sent to.
type Targeted struct {
	Attack
	Targets []string `json:"targets"`
}

// NewMatch decodes wire once per peer. CPUs without an ID get one.
func NewMatch(wire, humanID string, cpus []CPU) (*Match, error) {
	m := &Match{
		ID:      uuid.New(),
		Wire:    wire,
		results: make(map[string]Outcome),
	}

	human, err := NewPeer(humanID, wire)
	if err != nil {
		return nil, err
	}
	m.Peers = append(m.Peers, human)

	for _, cpu := range cpus {
		if cpu.ID == "" {
			cpu.ID = uuid.NewString()
		}
		p, err := NewPeer(cpu.ID, wire)
		if err != nil {
			return nil, err
		}
		p.CPU = &cpu
		m.Peers = append(m.Peers, p)
	}

	ids := lo.Map(m.Peers, func(p *Peer, _ int) string { return p.ID })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate peer id %q", dup[0])
	}
	return m, nil
}

// Start anchors every peer's margin clock at now.
func (m *Match) Start(now time.Time) {
	m.Started = now
	for _, p := range m.Peers {
		p.Start(now)
	}
}

func (m *Match) Peer(id string) (*Peer, error) {
	p, ok := lo.Find(m.Peers, func(p *Peer) bool { return p.ID == id })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, id)
	}
	return p, nil
}

// Opponents lists the IDs of every peer except id that is still playing.
func (m *Match) Opponents(id string) []string {
	return lo.FilterMap(m.Peers, func(p *Peer, _ int) (string, bool) {
		_, done := m.results[p.ID]
		return p.ID, p.ID != id && !done
	})
}

// Tick advances every peer's clock and returns the reductions by peer.
func (m *Match) Tick(now time.Time) map[string][]margin.Reduction {
	out := make(map[string][]margin.Reduction)
	for _, p := range m.Peers {
		if r := p.Tick(now); len(r) > 0 {
			out[p.ID] = r
		}
	}
	return out
}

// Chain applies a chain for one peer and addresses the attack to every
// opponent still playing.
func (m *Match) Chain(id string, steps []scoring.ClearEvent, now time.Time) (Targeted, error) {
	if m.Started.IsZero() {
		return Targeted{}, ErrNotStarted
	}
	p, err := m.Peer(id)
	if err != nil {
		return Targeted{}, err
	}
	if _, done := m.results[id]; done {
		return Targeted{}, fmt.Errorf("%w: %s", ErrAlreadyFinished, id)
	}
	a, err := p.ApplyChain(steps, now)
	if err != nil {
		return Targeted{}, err
	}
	t := Targeted{Attack: a}
	if a.Units > 0 {
		t.Targets = m.Opponents(id)
	}
	return t, nil
}

// Finish records how the match ended for one peer.
func (m *Match) Finish(id string, o Outcome) (Result, error) {
	if !o.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, o)
	}
	if _, err := m.Peer(id); err != nil {
		return Result{}, err
	}
	if _, done := m.results[id]; done {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyFinished, id)
	}
	m.results[id] = o
	return Result{PeerID: id, Outcome: o, Event: o.Event()}, nil
}

// Over reports whether at most one peer is still playing.
func (m *Match) Over() bool {
	return len(m.Peers)-len(m.results) <= 1
}
