package model

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundPending RoundStatus = "pending"
	RoundActive  RoundStatus = "active"
	RoundCrashed RoundStatus = "crashed"
)

// Round is a single instance of the crash game, from commitment to crash.
// Seed and CrashPoint stay server-side until the round crashes; only the
// commit hash is published while betting is open.
type Round struct {
	ID         int64       `json:"id"`
	UUID       uuid.UUID   `json:"uuid"`
	RoundID    int64       `json:"round_id"`
	Seed       string      `json:"-"`
	CommitHash string      `json:"commit_hash"`
	CrashPoint float64     `json:"-"`
	Status     RoundStatus `json:"status"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	CrashedAt  *time.Time  `json:"crashed_at,omitempty"`
	Bets       []*Bet      `json:"bets,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// BetByPlayer returns the player's bet in this round, or nil.
// At most one bet per player per round is an invariant the engine enforces.
func (r *Round) BetByPlayer(playerID string) *Bet {
	for _, bet := range r.Bets {
		if bet.PlayerID == playerID {
			return bet
		}
	}

	return nil
}
