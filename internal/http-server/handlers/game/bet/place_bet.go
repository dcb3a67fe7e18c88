package place_bet

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	resp "go-crash/internal/lib/api/response"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/model"
	"golang.org/x/exp/slog"
)

type Request struct {
	PlayerID string  `json:"player_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,oneof=BTC ETH"`
	RoundID  int64   `json:"round_id"`
}

type Response struct {
	resp.Response
	Bet *model.Bet `json:"bet,omitempty"`
}

type BetPlacer interface {
	PlaceBet(ctx context.Context, playerID string, notional decimal.Decimal, currency config.Currency, roundID int64) (*model.Bet, error)
}

type Bet struct {
	log       *slog.Logger
	validator *validator.Validate
	engine    BetPlacer
}

func NewBet(log *slog.Logger, engine BetPlacer) *Bet {
	return &Bet{
		log:       log,
		validator: validator.New(),
		engine:    engine,
	}
}

func (b *Bet) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.game.bet.New"

		log := b.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		log.Info("request body decoded", slog.Any("request", req))

		if err := b.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		bet, err := b.engine.PlaceBet(r.Context(), req.PlayerID,
			decimal.NewFromFloat(req.Amount), config.Currency(req.Currency), req.RoundID)
		if err != nil {
			log.Error("failed to place bet", sl.Err(err))

			render.JSON(w, r, resp.FromError(err))

			return
		}

		log.Info("bet placed",
			slog.String("player_id", req.PlayerID),
			slog.Int64("round_id", bet.RoundID),
			slog.String("asset_amount", bet.AssetAmount.String()))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Bet:      bet,
		})
	}
}
