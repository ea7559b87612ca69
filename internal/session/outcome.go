package session

// Outcome is how a match ended for one peer.
type Outcome string

const (
	Win           Outcome = "Win"
	Loss          Outcome = "Loss"
	OppDisconnect Outcome = "OppDisconnect"
	Disconnect    Outcome = "Disconnect"
)

// Events reported to the room for each outcome.
const (
	EventGameEnd  = "gameEnd"
	EventGameOver = "gameOver"
)

// Event is the room event a peer reports for the outcome. A peer that lost
// its own connection reports the match as lost.
func (o Outcome) Event() string {
	switch o {
	case Win, OppDisconnect:
		return EventGameEnd
	default:
		return EventGameOver
	}
}

func (o Outcome) Valid() bool {
	switch o {
	case Win, Loss, OppDisconnect, Disconnect:
		return true
	}
	return false
}
