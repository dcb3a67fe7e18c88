package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
)

type Player struct {
	ID        int64                               `json:"id"`
	UUID      uuid.UUID                           `json:"uuid"`
	PlayerID  string                              `json:"player_id"`
	Balances  map[config.Currency]decimal.Decimal `json:"balances"`
	CreatedAt time.Time                           `json:"created_at"`
}
