// Package seed derives the shared match seed from a host secret so that a
// match can be replayed or audited from (secret, room, nonce) alone.
package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// ByteGenerator streams HMAC-SHA256(secret, "room:nonce:round") output,
// moving to the next round every 32 bytes.
type ByteGenerator struct {
	secret string
	room   string
	nonce  uint64
	round  uint64
	pos    int
	buffer [32]byte
}

// NewByteGenerator starts the stream at byte offset cursor.
func NewByteGenerator(secret, room string, nonce, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		secret: secret,
		room:   room,
		nonce:  nonce,
		round:  cursor / 32,
		pos:    int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

func (bg *ByteGenerator) Next() byte {
	if bg.pos >= 32 {
		bg.round++
		bg.pos = 0
		bg.generateRound()
	}
	b := bg.buffer[bg.pos]
	bg.pos++
	return b
}

// NextFloat consumes four bytes and returns a float in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.secret))
	fmt.Fprintf(h, "%s:%d:%d", bg.room, bg.nonce, bg.round)
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat computes b0/256 + b1/256^2 + b2/256^3 + b3/256^4.
func bytesToFloat(b [4]byte) float64 {
	result := 0.0
	divider := 1.0
	for _, v := range b {
		divider *= 256
		result += float64(v) / divider
	}
	return result
}

// Floats returns count floats starting at byte offset cursor.
func Floats(secret, room string, nonce, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(secret, room, nonce, cursor)
	out := make([]float64, count)
	for i := range out {
		out[i] = bg.NextFloat()
	}
	return out
}

// MatchSeed is the seed the host broadcasts for match nonce in room.
func MatchSeed(secret, room string, nonce uint64) float64 {
	return NewByteGenerator(secret, room, nonce, 0).NextFloat()
}

// Commitment is the hex SHA-256 of the secret, published before a match so
// peers can later check the seed was not chosen after the fact.
func Commitment(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", sum)
}
