package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go-crash/internal/model"
	"go-crash/internal/repository/mysql"
)

// GameStore runs the balance-affecting writes of a bet or cashout as a
// single SQL transaction: either the balance update, the bet row, and the
// transaction record all land, or none do.
type GameStore struct {
	dbhandler mysql.Handler
}

func NewGameStore(dbhandler mysql.Handler) *GameStore {
	return &GameStore{dbhandler: dbhandler}
}

// PlaceBet debits the player's balance, appends the bet, and records the
// transaction atomically. The debit carries its own sufficiency guard so the
// persisted balance can never go negative even if the caller raced.
func (s *GameStore) PlaceBet(bet *model.Bet, record model.Transaction) (int64, error) {
	const op = "repository.game_store.PlaceBet"

	tx, err := s.dbhandler.StartTransaction()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	now := time.Now()

	const debitQuery = "UPDATE player_balances SET amount = amount - ?, updated_at = ? " +
		"WHERE player_id = ? AND currency = ? AND amount >= ?"

	res, err := tx.Exec(debitQuery,
		bet.AssetAmount.String(), now, bet.PlayerID, string(bet.Currency), bet.AssetAmount.String())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%s: %w", op, model.ErrInsufficientBalance)
	}

	const betQuery = "INSERT INTO bets(round_id, player_id, notional_amount, asset_amount, currency, created_at, updated_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?)"

	res, err = tx.Exec(betQuery,
		bet.RoundID, bet.PlayerID, bet.NotionalAmount.String(), bet.AssetAmount.String(),
		string(bet.Currency), now, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	betID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = insertTransaction(tx, record, now); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return betID, nil
}

// SettleCashout marks the bet's cashout fields, credits the payout, and
// records the transaction atomically. The bet update is guarded on the
// cashout fields still being unset.
func (s *GameStore) SettleCashout(bet *model.Bet, record model.Transaction) error {
	const op = "repository.game_store.SettleCashout"

	if bet.CashoutMultiplier == nil {
		return fmt.Errorf("%s: bet has no cashout multiplier", op)
	}

	tx, err := s.dbhandler.StartTransaction()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	now := time.Now()

	const betQuery = "UPDATE bets SET cashout_multiplier = ?, payout_notional = ?, payout_asset = ?, updated_at = ? " +
		"WHERE id = ? AND cashout_multiplier IS NULL"

	res, err := tx.Exec(betQuery,
		*bet.CashoutMultiplier, bet.PayoutNotional.String(), bet.PayoutAsset.String(), now, bet.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrAlreadyCashedOut)
	}

	const creditQuery = "UPDATE player_balances SET amount = amount + ?, updated_at = ? " +
		"WHERE player_id = ? AND currency = ?"

	if _, err = tx.Exec(creditQuery,
		bet.PayoutAsset.String(), now, bet.PlayerID, string(bet.Currency)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = insertTransaction(tx, record, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func insertTransaction(tx *sql.Tx, record model.Transaction, now time.Time) error {
	const query = "INSERT INTO transactions(uuid, player_id, round_id, type, notional_amount, asset_amount, currency, price_at_time, multiplier, created_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var multiplier interface{}
	if record.Multiplier != nil {
		multiplier = *record.Multiplier
	}

	_, err := tx.Exec(query,
		record.UUID.String(),
		record.PlayerID,
		record.RoundID,
		string(record.Type),
		record.NotionalAmount.String(),
		record.AssetAmount.String(),
		string(record.Currency),
		record.PriceAtTime.String(),
		multiplier,
		now)

	return err
}
