package verify

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go-crash/internal/engine"
	resp "go-crash/internal/lib/api/response"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

type Response struct {
	resp.Response
	Verification *engine.Verification `json:"verification,omitempty"`
}

type RoundVerifier interface {
	VerifyRound(roundID int64) (*engine.Verification, error)
}

type Verify struct {
	log    *slog.Logger
	engine RoundVerifier
}

func NewVerify(log *slog.Logger, engine RoundVerifier) *Verify {
	return &Verify{
		log:    log,
		engine: engine,
	}
}

func (v *Verify) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.game.verify.New"

		log := v.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		roundID, err := strconv.ParseInt(chi.URLParam(r, "roundID"), 10, 64)
		if err != nil {
			log.Error("invalid round id", sl.Err(err))

			render.JSON(w, r, resp.Error("invalid round id", http.StatusBadRequest))

			return
		}

		verification, err := v.engine.VerifyRound(roundID)
		if err != nil {
			log.Error("failed to verify round",
				sl.Int64("round_id", roundID),
				sl.Err(err))

			render.JSON(w, r, resp.FromError(err))

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			Verification: verification,
		})
	}
}
