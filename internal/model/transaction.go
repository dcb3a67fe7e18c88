package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
)

// Transaction is an immutable record of a balance-affecting event. Records
// are only ever appended; together they reconcile the ledger with round history.
type Transaction struct {
	ID             int64                  `json:"id"`
	UUID           uuid.UUID              `json:"uuid"`
	PlayerID       string                 `json:"player_id"`
	RoundID        int64                  `json:"round_id"`
	Type           config.TransactionType `json:"type"`
	NotionalAmount decimal.Decimal        `json:"notional_amount"`
	AssetAmount    decimal.Decimal        `json:"asset_amount"`
	Currency       config.Currency        `json:"currency"`
	PriceAtTime    decimal.Decimal        `json:"price_at_time"`
	Multiplier     *float64               `json:"multiplier,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
