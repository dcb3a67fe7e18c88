package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/model"
	"go-crash/internal/repository/mysql"
)

type PlayerRepository struct {
	dbhandler mysql.Handler
}

func NewPlayerRepository(dbhandler mysql.Handler) *PlayerRepository {
	return &PlayerRepository{dbhandler: dbhandler}
}

// CreatePlayer inserts the player and one balance row per currency.
func (repo *PlayerRepository) CreatePlayer(player model.Player) error {
	const op = "repository.player.CreatePlayer"

	now := time.Now()

	const playerQuery = "INSERT INTO players(uuid, player_id, created_at) VALUES(?, ?, ?)"

	_, err := repo.dbhandler.PrepareAndExecute(playerQuery, player.UUID.String(), player.PlayerID, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	const balanceQuery = "INSERT INTO player_balances(player_id, currency, amount, updated_at) VALUES(?, ?, ?, ?)"

	for currency, amount := range player.Balances {
		_, err = repo.dbhandler.PrepareAndExecute(balanceQuery, player.PlayerID, string(currency), amount.String(), now)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// ListPlayers loads all players with their balances; the ledger is seeded
// from this at startup.
func (repo *PlayerRepository) ListPlayers() ([]model.Player, error) {
	const op = "repository.player.ListPlayers"

	const query = "SELECT id, uuid, player_id, created_at FROM players ORDER BY id"

	rows, err := repo.dbhandler.PrepareAndQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var players []model.Player

	for rows.Next() {
		var (
			player  model.Player
			uuidStr string
		)

		if err = rows.Scan(&player.ID, &uuidStr, &player.PlayerID, &player.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err = player.UUID.UnmarshalText([]byte(uuidStr)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range players {
		balances, err := repo.balancesByPlayerID(players[i].PlayerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		players[i].Balances = balances
	}

	return players, nil
}

func (repo *PlayerRepository) balancesByPlayerID(playerID string) (map[config.Currency]decimal.Decimal, error) {
	const query = "SELECT currency, amount FROM player_balances WHERE player_id = ?"

	rows, err := repo.dbhandler.PrepareAndQuery(query, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[config.Currency]decimal.Decimal)

	for rows.Next() {
		var (
			currency string
			amount   string
		)

		if err = rows.Scan(&currency, &amount); err != nil {
			return nil, err
		}

		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}

		balances[config.Currency(currency)] = value
	}

	return balances, rows.Err()
}
