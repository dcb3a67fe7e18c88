package cashout

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	resp "go-crash/internal/lib/api/response"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/model"
	"golang.org/x/exp/slog"
)

// Multiplier is optional: a zero value locks in whatever the multiplier is
// when the engine processes the request.
type Request struct {
	PlayerID   string  `json:"player_id" validate:"required"`
	RoundID    int64   `json:"round_id"`
	Multiplier float64 `json:"multiplier" validate:"omitempty,gte=1"`
}

type Response struct {
	resp.Response
	Bet *model.Bet `json:"bet,omitempty"`
}

type CashOuter interface {
	CashOut(ctx context.Context, playerID string, roundID int64, multiplier float64) (*model.Bet, error)
}

type CashOut struct {
	log       *slog.Logger
	validator *validator.Validate
	engine    CashOuter
}

func NewCashOut(log *slog.Logger, engine CashOuter) *CashOut {
	return &CashOut{
		log:       log,
		validator: validator.New(),
		engine:    engine,
	}
}

func (c *CashOut) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.game.cashout.New"

		log := c.log.With(
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

		if err := c.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		bet, err := c.engine.CashOut(r.Context(), req.PlayerID, req.RoundID, req.Multiplier)
		if err != nil {
			log.Error("failed to cash out", sl.Err(err))

			render.JSON(w, r, resp.FromError(err))

			return
		}

		log.Info("player cashed out",
			slog.String("player_id", req.PlayerID),
			slog.Int64("round_id", bet.RoundID),
			slog.Any("multiplier", bet.CashoutMultiplier),
			slog.String("payout_notional", bet.PayoutNotional.String()))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Bet:      bet,
		})
	}
}
