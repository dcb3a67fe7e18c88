package main

import (
	"database/sql"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/model"
	"go-crash/internal/repository"
	"go-crash/internal/repository/mysql"
	"golang.org/x/exp/slog"
)

// Applies the schema and inserts the demo players with their starting
// balances. Safe to re-run: existing players are skipped.
func main() {
	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err = db.Ping(); err != nil {
		log.Error("failed to reach database", sl.Err(err))
		os.Exit(1)
	}

	for _, ddl := range repository.Schema {
		if _, err = db.Exec(ddl); err != nil {
			log.Error("failed to apply schema", sl.Err(err))
			os.Exit(1)
		}
	}

	log.Info("schema applied")

	playerRepo := repository.NewPlayerRepository(*mysql.New(db))

	players := []model.Player{
		{UUID: uuid.New(), PlayerID: "player1", Balances: balances("0.1", "2")},
		{UUID: uuid.New(), PlayerID: "player2", Balances: balances("0.05", "1")},
		{UUID: uuid.New(), PlayerID: "player3", Balances: balances("0.03", "0.5")},
	}

	for _, player := range players {
		if err = playerRepo.CreatePlayer(player); err != nil {
			if strings.Contains(err.Error(), "Duplicate entry") ||
				strings.Contains(err.Error(), "UNIQUE constraint failed") {
				log.Info("player already exists", slog.String("player_id", player.PlayerID))

				continue
			}

			log.Error("failed to create player",
				slog.String("player_id", player.PlayerID),
				sl.Err(err))
			os.Exit(1)
		}

		log.Info("player created", slog.String("player_id", player.PlayerID))
	}
}

func balances(btc, eth string) map[config.Currency]decimal.Decimal {
	return map[config.Currency]decimal.Decimal{
		config.BTC: decimal.RequireFromString(btc),
		config.ETH: decimal.RequireFromString(eth),
	}
}
