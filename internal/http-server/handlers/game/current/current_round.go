package current

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go-crash/internal/engine"
	resp "go-crash/internal/lib/api/response"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

type Response struct {
	resp.Response
	Round *engine.RoundState `json:"round,omitempty"`
}

type RoundReader interface {
	CurrentRound() (*engine.RoundState, error)
}

type Round struct {
	log    *slog.Logger
	engine RoundReader
}

func NewRound(log *slog.Logger, engine RoundReader) *Round {
	return &Round{
		log:    log,
		engine: engine,
	}
}

func (h *Round) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.game.current.New"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state, err := h.engine.CurrentRound()
		if err != nil {
			log.Info("no round in play", sl.Err(err))

			render.JSON(w, r, resp.FromError(err))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Round:    state,
		})
	}
}
