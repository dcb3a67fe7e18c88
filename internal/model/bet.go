package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
)

// Bet is a player's stake in a single round. The cashout fields are unset
// until the player exits and are never modified afterwards.
type Bet struct {
	ID                int64           `json:"id"`
	RoundID           int64           `json:"round_id"`
	PlayerID          string          `json:"player_id"`
	NotionalAmount    decimal.Decimal `json:"notional_amount"`
	AssetAmount       decimal.Decimal `json:"asset_amount"`
	Currency          config.Currency `json:"currency"`
	CashoutMultiplier *float64        `json:"cashout_multiplier,omitempty"`
	PayoutNotional    decimal.Decimal `json:"payout_notional,omitempty"`
	PayoutAsset       decimal.Decimal `json:"payout_asset,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (b *Bet) CashedOut() bool {
	return b.CashoutMultiplier != nil
}

// Clone returns a copy that is safe to read after the engine releases its
// lock; later cashout writes to the live bet cannot reach it.
func (b *Bet) Clone() *Bet {
	clone := *b

	if b.CashoutMultiplier != nil {
		multiplier := *b.CashoutMultiplier
		clone.CashoutMultiplier = &multiplier
	}

	return &clone
}
