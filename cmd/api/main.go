package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pusher/pusher-http-go/v5"
	"go-crash/internal/config"
	"go-crash/internal/engine"
	"go-crash/internal/event"
	place_bet "go-crash/internal/http-server/handlers/game/bet"
	"go-crash/internal/http-server/handlers/game/cashout"
	"go-crash/internal/http-server/handlers/game/current"
	"go-crash/internal/http-server/handlers/game/verify"
	"go-crash/internal/http-server/handlers/user/balance"
	"go-crash/internal/http-server/middleware/logger"
	"go-crash/internal/job"
	"go-crash/internal/ledger"
	"go-crash/internal/lib/logger/handler/slogpretty"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/price"
	"go-crash/internal/provably_fair"
	"go-crash/internal/repository"
	"go-crash/internal/repository/mysql"
	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting server...", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err = db.Ping(); err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	handler := mysql.New(db)

	store := repository.NewStore(*handler)
	playerRepo := repository.NewPlayerRepository(*handler)

	bank := ledger.New()

	players, err := playerRepo.ListPlayers()
	if err != nil {
		log.Error("Failed to load players", sl.Err(err))
		os.Exit(1)
	}
	bank.Load(players)

	log.Info("ledger loaded", slog.Int("players", len(players)))

	priceClient := price.New(log, cfg.Price.BaseURL, cfg.Price.CacheTTL, cfg.Price.Timeout)

	publisher, cleanup, err := setupPublisher(log, cfg)
	if err != nil {
		log.Error("Failed to init event publisher", sl.Err(err))
		os.Exit(1)
	}
	defer cleanup()

	pool := job.NewPool(4, 64)
	pool.Start()

	asyncPublisher := event.NewAsyncPublisher(log, pool, publisher)

	gen := provably_fair.NewGenerator(cfg.Game.MaxCrashSteps)

	eng, err := engine.New(log, cfg.Game, gen, bank, store, priceClient, asyncPublisher)
	if err != nil {
		log.Error("Failed to init engine", sl.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	betHandler := place_bet.NewBet(log, eng)
	cashoutHandler := cashout.NewCashOut(log, eng)
	currentHandler := current.NewRound(log, eng)
	verifyHandler := verify.NewVerify(log, eng)
	balanceHandler := balance.NewBalance(log, bank, priceClient)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Route("/api/game", func(r chi.Router) {
		r.Post("/bet", betHandler.New())
		r.Post("/cashout", cashoutHandler.New())
		r.Get("/current-round", currentHandler.New())
		r.Get("/balance/{playerID}", balanceHandler.New())
		r.Get("/rounds/{roundID}/verify", verifyHandler.New())
	})

	log.Info("Server started", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down server", sl.Err(err))
	}

	log.Info("Server stopped")
}

// setupPublisher picks the event transport: the hosted Pusher service when
// enabled, the in-house ws hub otherwise.
func setupPublisher(log *slog.Logger, cfg *config.Config) (event.Publisher, func(), error) {
	if cfg.Pusher.Enabled {
		client := &pusher.Client{
			AppID:   cfg.Pusher.AppID,
			Key:     cfg.Pusher.Key,
			Secret:  cfg.Pusher.Secret,
			Cluster: cfg.Pusher.Cluster,
		}

		return event.NewPusherPublisher(log, client), func() {}, nil
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSServer.PublishURL, nil)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := conn.Close(); err != nil {
			log.Error("failed to close ws connection", sl.Err(err))
		}
	}

	return event.NewWSPublisher(log, conn), cleanup, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlogLogger()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(&lumberjack.Logger{
				Filename:   "logs/api.log",
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			}, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlogLogger() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
