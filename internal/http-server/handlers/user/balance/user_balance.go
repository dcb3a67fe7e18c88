package balance

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	resp "go-crash/internal/lib/api/response"
	"go-crash/internal/lib/converter"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

type Holding struct {
	Amount   string `json:"amount"`
	Notional string `json:"notional,omitempty"`
}

type Response struct {
	resp.Response
	PlayerID string                      `json:"player_id,omitempty"`
	Balances map[config.Currency]Holding `json:"balances,omitempty"`
}

type BalanceReader interface {
	Balances(playerID string) (map[config.Currency]decimal.Decimal, error)
}

type Pricer interface {
	Price(ctx context.Context, currency config.Currency) (decimal.Decimal, error)
}

type Balance struct {
	log    *slog.Logger
	bank   BalanceReader
	pricer Pricer
}

func NewBalance(log *slog.Logger, bank BalanceReader, pricer Pricer) *Balance {
	return &Balance{
		log:    log,
		bank:   bank,
		pricer: pricer,
	}
}

func (b *Balance) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.balance.New"

		log := b.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		playerID := chi.URLParam(r, "playerID")

		balances, err := b.bank.Balances(playerID)
		if err != nil {
			log.Error("failed to read balances",
				sl.String("player_id", playerID),
				sl.Err(err))

			render.JSON(w, r, resp.FromError(err))

			return
		}

		holdings := make(map[config.Currency]Holding, len(balances))

		for currency, amount := range balances {
			holding := Holding{Amount: amount.String()}

			// The fiat view is best effort: a price outage must not
			// hide the asset balances themselves.
			price, priceErr := b.pricer.Price(r.Context(), currency)
			if priceErr != nil {
				log.Warn("price unavailable for balance view",
					sl.String("currency", string(currency)),
					sl.Err(priceErr))
			} else {
				holding.Notional = converter.AssetToNotional(amount, price).String()
			}

			holdings[currency] = holding
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			PlayerID: playerID,
			Balances: holdings,
		})
	}
}
