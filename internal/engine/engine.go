package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/event"
	"go-crash/internal/ledger"
	"go-crash/internal/lib/converter"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/model"
	"go-crash/internal/provably_fair"
	"golang.org/x/exp/slog"
)

// Store is the persistence boundary the engine writes through. Round writes
// and the composite bet/cashout transactions commit before the in-memory
// state they mirror is mutated.
type Store interface {
	SaveRound(round *model.Round) (int64, error)
	GetLastRoundID() (int64, error)
	GetRoundByRoundID(roundID int64) (*model.Round, error)
	UpdateRoundStatus(round *model.Round) error
	PlaceBet(bet *model.Bet, record model.Transaction) (int64, error)
	SettleCashout(bet *model.Bet, record model.Transaction) error
}

type Pricer interface {
	Price(ctx context.Context, currency config.Currency) (decimal.Decimal, error)
}

// Engine drives the round lifecycle and owns every state transition. One
// mutex serializes bet placement, cashout, and the crash transition, so a
// cashout and the crash of the same round can never interleave: whichever
// acquires the lock first wins, and ties go to the house.
type Engine struct {
	cfg    config.GameConfig
	log    *slog.Logger
	gen    *provably_fair.Generator
	ledger *ledger.Ledger
	store  Store
	pricer Pricer
	pub    event.Publisher

	mu          sync.Mutex
	current     *model.Round
	nextRoundID int64
}

func New(
	log *slog.Logger,
	cfg config.GameConfig,
	gen *provably_fair.Generator,
	bank *ledger.Ledger,
	store Store,
	pricer Pricer,
	pub event.Publisher,
) (*Engine, error) {
	const op = "engine.Engine.New"

	lastRoundID, err := store.GetLastRoundID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Engine{
		cfg:         cfg,
		log:         log,
		gen:         gen,
		ledger:      bank,
		store:       store,
		pricer:      pricer,
		pub:         pub,
		nextRoundID: lastRoundID + 1,
	}, nil
}

// Run executes rounds back to back until the context is cancelled. A failed
// round is reported to clients and followed by the cool-down and a fresh
// round rather than taking the whole service down.
func (e *Engine) Run(ctx context.Context) {
	for {
		if err := e.runRound(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}

			e.log.Error("round aborted", sl.Err(err))
			e.publish(event.NewError("round aborted, next round starts shortly"))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.CoolDown):
		}
	}
}

func (e *Engine) runRound(ctx context.Context) error {
	round, err := e.startRound()
	if err != nil {
		return err
	}

	e.publish(event.NewRoundStart(round.RoundID, round.Status, round.CommitHash))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.BettingWindow):
	}

	if err = e.activateRound(round); err != nil {
		e.abortRound(round)

		return err
	}

	if err = e.tickLoop(ctx, round); err != nil {
		e.abortRound(round)

		return err
	}

	return nil
}

// abortRound defensively crashes a round whose lifecycle failed partway, so
// request validation stops accepting cashouts against it. No seed reveal is
// published; the round never produced an outcome.
func (e *Engine) abortRound(round *model.Round) {
	e.mu.Lock()

	if round.Status == model.RoundCrashed {
		e.mu.Unlock()

		return
	}

	now := time.Now()
	round.Status = model.RoundCrashed
	round.CrashedAt = &now

	e.mu.Unlock()

	if err := e.store.UpdateRoundStatus(round); err != nil {
		e.log.Error("failed to persist aborted round", sl.Err(err))
	}
}

// startRound commits a fresh seed and persists the pending round. On a
// round id conflict it resynchronizes from storage and retries with the next
// id, giving up after a bounded number of attempts.
func (e *Engine) startRound() (*model.Round, error) {
	const op = "engine.Engine.startRound"

	for attempt := 0; attempt < e.cfg.StartRetries; attempt++ {
		e.mu.Lock()
		roundID := e.nextRoundID
		e.nextRoundID++
		e.mu.Unlock()

		commitment := e.gen.Commit(roundID)

		now := time.Now()
		round := &model.Round{
			UUID:       uuid.New(),
			RoundID:    roundID,
			Seed:       commitment.Seed,
			CommitHash: commitment.Hash,
			CrashPoint: commitment.CrashPoint,
			Status:     model.RoundPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		id, err := e.store.SaveRound(round)
		if err != nil {
			if errors.Is(err, model.ErrDuplicateRoundID) {
				e.log.Warn("round id already taken, retrying",
					sl.Int64("round_id", roundID))
				e.resyncNextRoundID()

				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		round.ID = id

		e.mu.Lock()
		e.current = round
		e.mu.Unlock()

		return round, nil
	}

	return nil, fmt.Errorf("%s: could not allocate a round id after %d attempts", op, e.cfg.StartRetries)
}

func (e *Engine) resyncNextRoundID() {
	lastRoundID, err := e.store.GetLastRoundID()
	if err != nil {
		e.log.Error("failed to resync round id", sl.Err(err))

		return
	}

	e.mu.Lock()
	if lastRoundID+1 > e.nextRoundID {
		e.nextRoundID = lastRoundID + 1
	}
	e.mu.Unlock()
}

func (e *Engine) activateRound(round *model.Round) error {
	const op = "engine.Engine.activateRound"

	e.mu.Lock()
	now := time.Now()
	round.Status = model.RoundActive
	round.StartedAt = &now
	e.mu.Unlock()

	if err := e.store.UpdateRoundStatus(round); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Announced again with the active status, then the multiplier stream
	// takes over.
	e.publish(event.NewRoundStart(round.RoundID, model.RoundActive, round.CommitHash))
	e.publish(event.NewMultiplierUpdate(round.RoundID, 1.0))

	return nil
}

// tickLoop broadcasts the growing multiplier until it reaches the
// predetermined crash point. The final multiplier update always equals the
// crash point, and the crash event that follows reveals the seed.
func (e *Engine) tickLoop(ctx context.Context, round *model.Round) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		multiplier, crashed := e.advance(round)
		if crashed {
			if err := e.store.UpdateRoundStatus(round); err != nil {
				// The in-memory transition already happened, so the
				// reveal still goes out; the row is reconciled by the
				// next status write.
				e.log.Error("failed to persist crash", sl.Err(err))
			}

			e.publish(event.NewMultiplierUpdate(round.RoundID, round.CrashPoint))
			e.publish(event.NewRoundCrash(round.RoundID, round.CrashPoint, round.Seed, round.CommitHash))

			return nil
		}

		e.publish(event.NewMultiplierUpdate(round.RoundID, multiplier))
	}
}

// advance recomputes the multiplier from the wall clock, so a delayed tick
// cannot slow the curve down. Crossing the crash point flips the round to
// crashed under the same lock cashouts validate under.
func (e *Engine) advance(round *model.Round) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	multiplier := e.multiplierLocked(round)
	if multiplier < round.CrashPoint {
		return multiplier, false
	}

	now := time.Now()
	round.Status = model.RoundCrashed
	round.CrashedAt = &now

	return round.CrashPoint, true
}

func (e *Engine) multiplierLocked(round *model.Round) float64 {
	if round.StartedAt == nil {
		return 1
	}

	elapsed := time.Since(*round.StartedAt).Seconds()

	multiplier := 1 + elapsed*e.cfg.GrowthRate
	if multiplier > round.CrashPoint {
		multiplier = round.CrashPoint
	}

	return multiplier
}

// PlaceBet stakes a fiat amount on the given round while its betting window
// is open. The price is fetched outside the engine lock so a slow upstream
// cannot stall the round clock; the round state is re-validated afterwards.
func (e *Engine) PlaceBet(ctx context.Context, playerID string, notional decimal.Decimal, currency config.Currency, roundID int64) (*model.Bet, error) {
	const op = "engine.Engine.PlaceBet"

	e.mu.Lock()
	_, err := e.betRoundLocked(playerID, roundID, notional, currency)
	e.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	price, err := e.pricer.Price(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The betting window may have closed while the price was in flight.
	round, err := e.betRoundLocked(playerID, roundID, notional, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	asset := converter.NotionalToAsset(notional, price)
	now := time.Now()

	bet := &model.Bet{
		RoundID:        round.RoundID,
		PlayerID:       playerID,
		NotionalAmount: notional,
		AssetAmount:    asset,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	record := model.Transaction{
		UUID:           uuid.New(),
		PlayerID:       playerID,
		RoundID:        round.RoundID,
		Type:           config.Bet,
		NotionalAmount: notional,
		AssetAmount:    asset,
		Currency:       currency,
		PriceAtTime:    price,
		CreatedAt:      now,
	}

	betID, err := e.store.PlaceBet(bet, record)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bet.ID = betID

	if err = e.ledger.Debit(playerID, currency, asset); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.ledger.Append(record)
	round.Bets = append(round.Bets, bet)

	return bet.Clone(), nil
}

// betRoundLocked validates the preconditions in order: round exists, round
// pending, player known, no duplicate bet, amount and currency valid. The
// caller sees the first failure.
func (e *Engine) betRoundLocked(playerID string, roundID int64, notional decimal.Decimal, currency config.Currency) (*model.Round, error) {
	round := e.current
	if round == nil {
		return nil, model.ErrNoCurrentRound
	}
	if roundID != 0 && roundID != round.RoundID {
		return nil, model.ErrRoundNotFound
	}
	if round.Status != model.RoundPending {
		return nil, model.ErrRoundNotPending
	}
	if !e.ledger.HasPlayer(playerID) {
		return nil, model.ErrPlayerNotFound
	}
	if round.BetByPlayer(playerID) != nil {
		return nil, model.ErrDuplicateBet
	}
	if notional.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, model.ErrInvalidCurrency
	}

	return round, nil
}

// CashOut exits the player's bet at the requested multiplier, or at the
// current one when the request carries none. The requested multiplier must
// not exceed the live multiplier, and a round that has already crashed pays
// nothing: the crash transition holds the same lock this validation does.
func (e *Engine) CashOut(ctx context.Context, playerID string, roundID int64, requested float64) (*model.Bet, error) {
	const op = "engine.Engine.CashOut"

	e.mu.Lock()
	_, bet, _, err := e.cashoutStateLocked(playerID, roundID)
	e.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	price, err := e.pricer.Price(ctx, bet.Currency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The round may have crashed while the price was in flight; the
	// cashout is only honored if it is still active now.
	round, bet, current, err := e.cashoutStateLocked(playerID, roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	multiplier := requested
	if multiplier == 0 {
		multiplier = current
	}
	if multiplier < 1 {
		return nil, fmt.Errorf("%s: %w", op, model.ErrInvalidMultiplier)
	}
	if multiplier > current {
		return nil, fmt.Errorf("%s: %w", op, model.ErrMultiplierTooHigh)
	}

	payoutNotional := converter.PayoutNotional(bet.NotionalAmount, multiplier)
	payoutAsset := converter.NotionalToAsset(payoutNotional, price)
	now := time.Now()

	bet.CashoutMultiplier = &multiplier
	bet.PayoutNotional = payoutNotional
	bet.PayoutAsset = payoutAsset
	bet.UpdatedAt = now

	record := model.Transaction{
		UUID:           uuid.New(),
		PlayerID:       playerID,
		RoundID:        round.RoundID,
		Type:           config.Cashout,
		NotionalAmount: payoutNotional,
		AssetAmount:    payoutAsset,
		Currency:       bet.Currency,
		PriceAtTime:    price,
		Multiplier:     &multiplier,
		CreatedAt:      now,
	}

	if err = e.store.SettleCashout(bet, record); err != nil {
		bet.CashoutMultiplier = nil
		bet.PayoutNotional = decimal.Zero
		bet.PayoutAsset = decimal.Zero

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = e.ledger.Credit(playerID, bet.Currency, payoutAsset); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.ledger.Append(record)

	e.publish(event.NewPlayerCashout(playerID, round.RoundID, multiplier, payoutNotional))

	return bet.Clone(), nil
}

func (e *Engine) cashoutStateLocked(playerID string, roundID int64) (*model.Round, *model.Bet, float64, error) {
	round := e.current
	if round == nil {
		return nil, nil, 0, model.ErrNoCurrentRound
	}
	if roundID != 0 && roundID != round.RoundID {
		return nil, nil, 0, model.ErrRoundNotFound
	}
	if round.Status != model.RoundActive {
		return nil, nil, 0, model.ErrRoundNotActive
	}

	bet := round.BetByPlayer(playerID)
	if bet == nil {
		return nil, nil, 0, model.ErrBetNotFound
	}
	if bet.CashedOut() {
		return nil, nil, 0, model.ErrAlreadyCashedOut
	}

	current := e.multiplierLocked(round)
	if current >= round.CrashPoint {
		// Reached the crash point between ticks; the round is over even
		// though the ticker has not fired yet.
		return nil, nil, 0, model.ErrRoundNotActive
	}

	return round, bet, current, nil
}

// RoundState is the public view of the round in play. It never carries the
// seed or the crash point while the round is live.
type RoundState struct {
	RoundID    int64             `json:"round_id"`
	Status     model.RoundStatus `json:"status"`
	CommitHash string            `json:"commit_hash"`
	Multiplier *float64          `json:"multiplier,omitempty"`
	CrashPoint *float64          `json:"crash_point,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	Bets       []*model.Bet      `json:"bets,omitempty"`
}

func (e *Engine) CurrentRound() (*RoundState, error) {
	const op = "engine.Engine.CurrentRound"

	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.current
	if round == nil {
		return nil, fmt.Errorf("%s: %w", op, model.ErrNoCurrentRound)
	}

	// Bets are cloned: the live ones stay mutable under this lock, and the
	// snapshot is read after it is released.
	bets := make([]*model.Bet, len(round.Bets))
	for i, bet := range round.Bets {
		bets[i] = bet.Clone()
	}

	state := &RoundState{
		RoundID:    round.RoundID,
		Status:     round.Status,
		CommitHash: round.CommitHash,
		StartedAt:  round.StartedAt,
		Bets:       bets,
	}

	switch round.Status {
	case model.RoundActive:
		multiplier := e.multiplierLocked(round)
		state.Multiplier = &multiplier
	case model.RoundCrashed:
		crashPoint := round.CrashPoint
		state.Multiplier = &crashPoint
		state.CrashPoint = &crashPoint
	}

	return state, nil
}

// Verification is the result of re-deriving a crashed round's outcome from
// its revealed seed.
type Verification struct {
	RoundID    int64   `json:"round_id"`
	Seed       string  `json:"seed"`
	CommitHash string  `json:"commit_hash"`
	CrashPoint float64 `json:"crash_point"`
	Valid      bool    `json:"valid"`
}

// VerifyRound loads the round and re-derives its crash point. The seed of a
// round that has not crashed yet is never disclosed.
func (e *Engine) VerifyRound(roundID int64) (*Verification, error) {
	const op = "engine.Engine.VerifyRound"

	round, err := e.store.GetRoundByRoundID(roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if round.Status != model.RoundCrashed {
		return nil, fmt.Errorf("%s: %w", op, model.ErrSeedNotRevealed)
	}

	return &Verification{
		RoundID:    round.RoundID,
		Seed:       round.Seed,
		CommitHash: round.CommitHash,
		CrashPoint: round.CrashPoint,
		Valid:      e.gen.Verify(round.Seed, round.RoundID, round.CommitHash, round.CrashPoint),
	}, nil
}

func (e *Engine) publish(m event.Message) {
	if err := e.pub.TriggerEvent(m); err != nil {
		e.log.Error("failed to publish event",
			sl.String("event", m.Event),
			sl.Err(err))
	}
}
