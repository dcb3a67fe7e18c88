package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/model"
	"go-crash/internal/repository/mysql"
)

type RoundRepository struct {
	dbhandler mysql.Handler
}

func NewRoundRepository(dbhandler mysql.Handler) *RoundRepository {
	return &RoundRepository{dbhandler: dbhandler}
}

// SaveRound inserts the round and returns its storage id. A uniqueness
// conflict on round_id maps to ErrDuplicateRoundID so the engine can retry
// with the next id.
func (repo *RoundRepository) SaveRound(round *model.Round) (int64, error) {
	const op = "repository.round.SaveRound"

	const query = "INSERT INTO rounds(uuid, round_id, seed, commit_hash, crash_point, status, created_at, updated_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?, ?)"

	now := time.Now()

	res, err := repo.dbhandler.PrepareAndExecute(query,
		round.UUID.String(),
		round.RoundID,
		round.Seed,
		round.CommitHash,
		round.CrashPoint,
		string(round.Status),
		now,
		now)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, fmt.Errorf("%s: %w", op, model.ErrDuplicateRoundID)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// GetLastRoundID returns the highest assigned round id, or 0 when no round
// exists yet.
func (repo *RoundRepository) GetLastRoundID() (int64, error) {
	const op = "repository.round.GetLastRoundID"

	const query = "SELECT round_id FROM rounds ORDER BY round_id DESC LIMIT 1"

	row, err := repo.dbhandler.PrepareAndQueryRow(query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var roundID int64

	err = row.Scan(&roundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return roundID, nil
}

func (repo *RoundRepository) GetRoundByRoundID(roundID int64) (*model.Round, error) {
	const op = "repository.round.GetRoundByRoundID"

	const query = "SELECT id, uuid, round_id, seed, commit_hash, crash_point, status, started_at, crashed_at, created_at, updated_at " +
		"FROM rounds WHERE round_id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	round := &model.Round{}

	var (
		uuidStr   string
		status    string
		startedAt sql.NullTime
		crashedAt sql.NullTime
	)

	err = row.Scan(&round.ID, &uuidStr, &round.RoundID, &round.Seed, &round.CommitHash,
		&round.CrashPoint, &status, &startedAt, &crashedAt, &round.CreatedAt, &round.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, model.ErrRoundNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	round.Status = model.RoundStatus(status)
	if err = round.UUID.UnmarshalText([]byte(uuidStr)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if startedAt.Valid {
		round.StartedAt = &startedAt.Time
	}
	if crashedAt.Valid {
		round.CrashedAt = &crashedAt.Time
	}

	bets, err := repo.getBetsByRoundID(roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	round.Bets = bets

	return round, nil
}

// UpdateRoundStatus writes the round's status and transition timestamps.
func (repo *RoundRepository) UpdateRoundStatus(round *model.Round) error {
	const op = "repository.round.UpdateRoundStatus"

	const query = "UPDATE rounds SET status = ?, started_at = ?, crashed_at = ?, updated_at = ? WHERE round_id = ?"

	var startedAt, crashedAt interface{}
	if round.StartedAt != nil {
		startedAt = *round.StartedAt
	}
	if round.CrashedAt != nil {
		crashedAt = *round.CrashedAt
	}

	_, err := repo.dbhandler.PrepareAndExecute(query,
		string(round.Status), startedAt, crashedAt, time.Now(), round.RoundID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (repo *RoundRepository) getBetsByRoundID(roundID int64) ([]*model.Bet, error) {
	const query = "SELECT id, round_id, player_id, notional_amount, asset_amount, currency, " +
		"cashout_multiplier, payout_notional, payout_asset, created_at, updated_at " +
		"FROM bets WHERE round_id = ? ORDER BY id"

	rows, err := repo.dbhandler.PrepareAndQuery(query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*model.Bet

	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}

		bets = append(bets, bet)
	}

	return bets, rows.Err()
}

func scanBet(rows *sql.Rows) (*model.Bet, error) {
	bet := &model.Bet{}

	var (
		notional       string
		asset          string
		currency       string
		multiplier     sql.NullFloat64
		payoutNotional sql.NullString
		payoutAsset    sql.NullString
	)

	err := rows.Scan(&bet.ID, &bet.RoundID, &bet.PlayerID, &notional, &asset, &currency,
		&multiplier, &payoutNotional, &payoutAsset, &bet.CreatedAt, &bet.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if bet.NotionalAmount, err = decimal.NewFromString(notional); err != nil {
		return nil, err
	}
	if bet.AssetAmount, err = decimal.NewFromString(asset); err != nil {
		return nil, err
	}

	bet.Currency = config.Currency(currency)

	if multiplier.Valid {
		bet.CashoutMultiplier = &multiplier.Float64
	}
	if payoutNotional.Valid {
		if bet.PayoutNotional, err = decimal.NewFromString(payoutNotional.String); err != nil {
			return nil, err
		}
	}
	if payoutAsset.Valid {
		if bet.PayoutAsset, err = decimal.NewFromString(payoutAsset.String); err != nil {
			return nil, err
		}
	}

	return bet, nil
}

// isDuplicateKey recognizes uniqueness violations from MySQL (error 1062) and
// from the sqlite driver used in tests.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
