package event

import (
	"github.com/shopspring/decimal"
	"go-crash/internal/model"
)

const (
	GameChannel    = "game-channel"
	BalanceChannel = "balance-channel"

	RoundStartEvent       = "round-start-event"
	MultiplierUpdateEvent = "multiplier-update-event"
	RoundCrashEvent       = "round-crash-event"
	PlayerCashoutEvent    = "player-cashout-event"
	ErrorEvent            = "error-event"
)

type Message struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

func NewRoundStart(roundID int64, status model.RoundStatus, commitHash string) Message {
	return Message{
		Channel: GameChannel,
		Event:   RoundStartEvent,
		Data: map[string]interface{}{
			"round_id":    roundID,
			"status":      string(status),
			"commit_hash": commitHash,
		},
	}
}

func NewMultiplierUpdate(roundID int64, multiplier float64) Message {
	return Message{
		Channel: GameChannel,
		Event:   MultiplierUpdateEvent,
		Data: map[string]interface{}{
			"round_id":   roundID,
			"multiplier": multiplier,
		},
	}
}

// NewRoundCrash opens the commitment: the seed goes public the moment the
// round crashes so anyone can re-derive the crash point.
func NewRoundCrash(roundID int64, crashPoint float64, seed, commitHash string) Message {
	return Message{
		Channel: GameChannel,
		Event:   RoundCrashEvent,
		Data: map[string]interface{}{
			"round_id":    roundID,
			"crash_point": crashPoint,
			"seed":        seed,
			"commit_hash": commitHash,
		},
	}
}

func NewPlayerCashout(playerID string, roundID int64, multiplier float64, payoutNotional decimal.Decimal) Message {
	return Message{
		Channel: GameChannel,
		Event:   PlayerCashoutEvent,
		Data: map[string]interface{}{
			"player_id":       playerID,
			"round_id":        roundID,
			"multiplier":      multiplier,
			"payout_notional": payoutNotional.String(),
		},
	}
}

func NewError(message string) Message {
	return Message{
		Channel: GameChannel,
		Event:   ErrorEvent,
		Data: map[string]interface{}{
			"message": message,
		},
	}
}
