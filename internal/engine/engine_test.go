package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/event"
	"go-crash/internal/ledger"
	"go-crash/internal/model"
	"go-crash/internal/provably_fair"
	"golang.org/x/exp/slog"
)

type fakeStore struct {
	mu             sync.Mutex
	rounds         map[int64]*model.Round
	lastRoundID    int64
	nextStorageID  int64
	duplicateFails int
	placeBetErr    error
	settleErr      error
	updateErr      error
	placed         []model.Bet
	settled        []model.Bet
	records        []model.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{rounds: make(map[int64]*model.Round)}
}

func (s *fakeStore) SaveRound(round *model.Round) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.duplicateFails > 0 {
		s.duplicateFails--

		return 0, model.ErrDuplicateRoundID
	}
	if _, exists := s.rounds[round.RoundID]; exists {
		return 0, model.ErrDuplicateRoundID
	}

	s.nextStorageID++
	s.rounds[round.RoundID] = round
	if round.RoundID > s.lastRoundID {
		s.lastRoundID = round.RoundID
	}

	return s.nextStorageID, nil
}

func (s *fakeStore) GetLastRoundID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastRoundID, nil
}

func (s *fakeStore) GetRoundByRoundID(roundID int64) (*model.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil, model.ErrRoundNotFound
	}

	return round, nil
}

func (s *fakeStore) UpdateRoundStatus(*model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateErr
}

func (s *fakeStore) PlaceBet(bet *model.Bet, record model.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.placeBetErr != nil {
		return 0, s.placeBetErr
	}

	s.placed = append(s.placed, *bet)
	s.records = append(s.records, record)

	return int64(len(s.placed)), nil
}

func (s *fakeStore) SettleCashout(bet *model.Bet, record model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settleErr != nil {
		return s.settleErr
	}

	s.settled = append(s.settled, *bet)
	s.records = append(s.records, record)

	return nil
}

type fixedPricer struct {
	prices map[config.Currency]decimal.Decimal
}

func (p fixedPricer) Price(_ context.Context, currency config.Currency) (decimal.Decimal, error) {
	price, ok := p.prices[currency]
	if !ok {
		return decimal.Zero, model.ErrPriceUnavailable
	}

	return price, nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []event.Message
}

func (r *recorder) TriggerEvent(m event.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, m)

	return nil
}

func (r *recorder) events() []event.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]event.Message(nil), r.msgs...)
}

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		BettingWindow: 10 * time.Millisecond,
		CoolDown:      5 * time.Millisecond,
		TickInterval:  time.Millisecond,
		GrowthRate:    1.0,
		MaxCrashSteps: 1200,
		StartRetries:  3,
	}
}

func newTestEngine(t *testing.T, store Store, cfg config.GameConfig) (*Engine, *ledger.Ledger, *recorder) {
	t.Helper()

	bank := ledger.New()
	bank.Load([]model.Player{
		{PlayerID: "player1", Balances: map[config.Currency]decimal.Decimal{
			config.BTC: decimal.RequireFromString("0.1"),
			config.ETH: decimal.RequireFromString("2"),
		}},
		{PlayerID: "player2", Balances: map[config.Currency]decimal.Decimal{
			config.BTC: decimal.RequireFromString("0.0001"),
		}},
	})

	pricer := fixedPricer{prices: map[config.Currency]decimal.Decimal{
		config.BTC: decimal.RequireFromString("50000"),
		config.ETH: decimal.RequireFromString("2000"),
	}}

	rec := &recorder{}
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	eng, err := New(log, cfg, provably_fair.NewGenerator(cfg.MaxCrashSteps), bank, store, pricer, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return eng, bank, rec
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))

	return len(p), nil
}

// pendingRound wires a pending round into the engine as if the betting window
// had just opened.
func pendingRound(eng *Engine, roundID int64, crashPoint float64) *model.Round {
	round := &model.Round{
		RoundID:    roundID,
		Seed:       "seed",
		CommitHash: "hash",
		CrashPoint: crashPoint,
		Status:     model.RoundPending,
		CreatedAt:  time.Now(),
	}

	eng.mu.Lock()
	eng.current = round
	eng.mu.Unlock()

	return round
}

// activeRound wires an active round whose clock started in the past, so the
// current multiplier is deterministic enough for assertions.
func activeRound(eng *Engine, roundID int64, crashPoint float64, elapsed time.Duration) *model.Round {
	round := pendingRound(eng, roundID, crashPoint)

	startedAt := time.Now().Add(-elapsed)

	eng.mu.Lock()
	round.Status = model.RoundActive
	round.StartedAt = &startedAt
	eng.mu.Unlock()

	return round
}

func TestPlaceBet(t *testing.T) {
	store := newFakeStore()
	eng, bank, _ := newTestEngine(t, store, testGameConfig())
	round := pendingRound(eng, 1, 2.5)

	bet, err := eng.PlaceBet(context.Background(), "player1",
		decimal.RequireFromString("10"), config.BTC, 1)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	wantAsset := decimal.RequireFromString("0.0002") // 10 / 50000
	if !bet.AssetAmount.Equal(wantAsset) {
		t.Errorf("asset amount = %s, want %s", bet.AssetAmount, wantAsset)
	}

	balance, err := bank.Balance("player1", config.BTC)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("0.0998")) {
		t.Errorf("balance after bet = %s, want 0.0998", balance)
	}

	if round.BetByPlayer("player1") == nil {
		t.Error("bet not attached to round")
	}
	if len(store.placed) != 1 {
		t.Errorf("persisted bets = %d, want 1", len(store.placed))
	}
	if bank.TransactionCount() != 1 {
		t.Errorf("transaction count = %d, want 1", bank.TransactionCount())
	}
}

func TestPlaceBetRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(eng *Engine)
		player  string
		amount  string
		roundID int64
		wantErr error
	}{
		{
			name:    "no current round",
			setup:   func(*Engine) {},
			player:  "player1",
			amount:  "10",
			roundID: 1,
			wantErr: model.ErrNoCurrentRound,
		},
		{
			name:    "unknown round",
			setup:   func(eng *Engine) { pendingRound(eng, 1, 2.5) },
			player:  "player1",
			amount:  "10",
			roundID: 99,
			wantErr: model.ErrRoundNotFound,
		},
		{
			name:    "stale round id checked before amount",
			setup:   func(eng *Engine) { pendingRound(eng, 1, 2.5) },
			player:  "player1",
			amount:  "0",
			roundID: 99,
			wantErr: model.ErrRoundNotFound,
		},
		{
			name:    "round already active",
			setup:   func(eng *Engine) { activeRound(eng, 1, 2.5, time.Second) },
			player:  "player1",
			amount:  "10",
			roundID: 1,
			wantErr: model.ErrRoundNotPending,
		},
		{
			name: "round already crashed",
			setup: func(eng *Engine) {
				round := pendingRound(eng, 1, 2.5)
				round.Status = model.RoundCrashed
			},
			player:  "player1",
			amount:  "10",
			roundID: 1,
			wantErr: model.ErrRoundNotPending,
		},
		{
			name:    "unknown player",
			setup:   func(eng *Engine) { pendingRound(eng, 1, 2.5) },
			player:  "ghost",
			amount:  "10",
			roundID: 1,
			wantErr: model.ErrPlayerNotFound,
		},
		{
			name:    "non-positive amount",
			setup:   func(eng *Engine) { pendingRound(eng, 1, 2.5) },
			player:  "player1",
			amount:  "0",
			roundID: 1,
			wantErr: model.ErrInvalidAmount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			eng, bank, _ := newTestEngine(t, store, testGameConfig())
			tc.setup(eng)

			_, err := eng.PlaceBet(context.Background(), tc.player,
				decimal.RequireFromString(tc.amount), config.BTC, tc.roundID)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}

			if len(store.placed) != 0 {
				t.Error("rejected bet must not be persisted")
			}
			if bank.TransactionCount() != 0 {
				t.Error("rejected bet must not append a transaction")
			}
		})
	}
}

func TestPlaceBetDuplicate(t *testing.T) {
	store := newFakeStore()
	eng, bank, _ := newTestEngine(t, store, testGameConfig())
	pendingRound(eng, 1, 2.5)

	if _, err := eng.PlaceBet(context.Background(), "player1",
		decimal.RequireFromString("10"), config.BTC, 1); err != nil {
		t.Fatalf("first PlaceBet: %v", err)
	}

	balanceBefore, _ := bank.Balance("player1", config.BTC)

	_, err := eng.PlaceBet(context.Background(), "player1",
		decimal.RequireFromString("5"), config.BTC, 1)
	if !errors.Is(err, model.ErrDuplicateBet) {
		t.Fatalf("expected ErrDuplicateBet, got %v", err)
	}

	balanceAfter, _ := bank.Balance("player1", config.BTC)
	if !balanceAfter.Equal(balanceBefore) {
		t.Errorf("balance changed on duplicate bet: %s -> %s", balanceBefore, balanceAfter)
	}
}

func TestPlaceBetInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	store.placeBetErr = model.ErrInsufficientBalance

	eng, bank, _ := newTestEngine(t, store, testGameConfig())
	pendingRound(eng, 1, 2.5)

	// player2 holds 0.0001 BTC, worth 5 fiat at the test price.
	_, err := eng.PlaceBet(context.Background(), "player2",
		decimal.RequireFromString("10"), config.BTC, 1)
	if !errors.Is(err, model.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	balance, _ := bank.Balance("player2", config.BTC)
	if !balance.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("balance must be untouched, got %s", balance)
	}
	if bank.TransactionCount() != 0 {
		t.Error("failed bet must not append a transaction")
	}
}

func TestCashOut(t *testing.T) {
	store := newFakeStore()
	eng, bank, rec := newTestEngine(t, store, testGameConfig())
	pendingRound(eng, 1, 2.5)

	if _, err := eng.PlaceBet(context.Background(), "player1",
		decimal.RequireFromString("10"), config.BTC, 1); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	// Start the clock two seconds in the past: growth rate 1.0 puts the
	// current multiplier near 3.0, comfortably above the requested 2.10
	// and below the crash point.
	startedAt := time.Now().Add(-2 * time.Second)
	eng.mu.Lock()
	eng.current.Status = model.RoundActive
	eng.current.StartedAt = &startedAt
	eng.current.CrashPoint = 5.0
	eng.mu.Unlock()

	bet, err := eng.CashOut(context.Background(), "player1", 1, 2.1)
	if err != nil {
		t.Fatalf("CashOut: %v", err)
	}

	if !bet.PayoutNotional.Equal(decimal.RequireFromString("21")) {
		t.Errorf("payout notional = %s, want 21", bet.PayoutNotional)
	}
	if !bet.PayoutAsset.Equal(decimal.RequireFromString("0.00042")) {
		t.Errorf("payout asset = %s, want 0.00042", bet.PayoutAsset)
	}
	if bet.CashoutMultiplier == nil || *bet.CashoutMultiplier != 2.1 {
		t.Errorf("cashout multiplier = %v, want 2.1", bet.CashoutMultiplier)
	}

	// 0.1 - 0.0002 staked + 0.00042 payout
	balance, _ := bank.Balance("player1", config.BTC)
	if !balance.Equal(decimal.RequireFromString("0.10022")) {
		t.Errorf("balance after cashout = %s, want 0.10022", balance)
	}

	var cashoutSeen bool
	for _, m := range rec.events() {
		if m.Event == event.PlayerCashoutEvent {
			cashoutSeen = true
			if m.Data["payout_notional"] != "21" {
				t.Errorf("event payout = %v, want 21", m.Data["payout_notional"])
			}
		}
	}
	if !cashoutSeen {
		t.Error("expected a player cashout event")
	}
}

func TestCashOutRejections(t *testing.T) {
	setupWithBet := func(eng *Engine, status model.RoundStatus) {
		round := activeRound(eng, 1, 5.0, 2*time.Second)
		round.Bets = []*model.Bet{{
			RoundID:        1,
			PlayerID:       "player1",
			NotionalAmount: decimal.RequireFromString("10"),
			AssetAmount:    decimal.RequireFromString("0.0002"),
			Currency:       config.BTC,
		}}
		round.Status = status
	}

	tests := []struct {
		name       string
		setup      func(eng *Engine)
		player     string
		multiplier float64
		wantErr    error
	}{
		{
			name:       "round still pending",
			setup:      func(eng *Engine) { setupWithBet(eng, model.RoundPending) },
			player:     "player1",
			multiplier: 1.5,
			wantErr:    model.ErrRoundNotActive,
		},
		{
			name:       "round already crashed",
			setup:      func(eng *Engine) { setupWithBet(eng, model.RoundCrashed) },
			player:     "player1",
			multiplier: 1.5,
			wantErr:    model.ErrRoundNotActive,
		},
		{
			name:       "no bet in round",
			setup:      func(eng *Engine) { activeRound(eng, 1, 5.0, 2*time.Second) },
			player:     "player1",
			multiplier: 1.5,
			wantErr:    model.ErrBetNotFound,
		},
		{
			name:       "multiplier above current",
			setup:      func(eng *Engine) { setupWithBet(eng, model.RoundActive) },
			player:     "player1",
			multiplier: 4.9,
			wantErr:    model.ErrMultiplierTooHigh,
		},
		{
			name:       "multiplier below one",
			setup:      func(eng *Engine) { setupWithBet(eng, model.RoundActive) },
			player:     "player1",
			multiplier: 0.5,
			wantErr:    model.ErrInvalidMultiplier,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			eng, bank, _ := newTestEngine(t, store, testGameConfig())
			tc.setup(eng)

			_, err := eng.CashOut(context.Background(), tc.player, 1, tc.multiplier)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}

			if len(store.settled) != 0 {
				t.Error("rejected cashout must not be persisted")
			}

			balance, _ := bank.Balance("player1", config.BTC)
			if !balance.Equal(decimal.RequireFromString("0.1")) {
				t.Errorf("balance changed on rejected cashout: %s", balance)
			}
		})
	}
}

func TestCashOutTwice(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(t, store, testGameConfig())

	round := activeRound(eng, 1, 5.0, 2*time.Second)
	round.Bets = []*model.Bet{{
		RoundID:        1,
		PlayerID:       "player1",
		NotionalAmount: decimal.RequireFromString("10"),
		AssetAmount:    decimal.RequireFromString("0.0002"),
		Currency:       config.BTC,
	}}

	if _, err := eng.CashOut(context.Background(), "player1", 1, 1.5); err != nil {
		t.Fatalf("first CashOut: %v", err)
	}

	_, err := eng.CashOut(context.Background(), "player1", 1, 1.5)
	if !errors.Is(err, model.ErrAlreadyCashedOut) {
		t.Fatalf("expected ErrAlreadyCashedOut, got %v", err)
	}

	if len(store.settled) != 1 {
		t.Errorf("settled cashouts = %d, want 1", len(store.settled))
	}
}

func TestCashOutWithoutMultiplierUsesCurrent(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(t, store, testGameConfig())

	round := activeRound(eng, 1, 100.0, 2*time.Second)
	round.Bets = []*model.Bet{{
		RoundID:        1,
		PlayerID:       "player1",
		NotionalAmount: decimal.RequireFromString("10"),
		AssetAmount:    decimal.RequireFromString("0.0002"),
		Currency:       config.BTC,
	}}

	bet, err := eng.CashOut(context.Background(), "player1", 1, 0)
	if err != nil {
		t.Fatalf("CashOut: %v", err)
	}

	if bet.CashoutMultiplier == nil {
		t.Fatal("cashout multiplier not set")
	}
	// Clock started 2s ago with growth 1.0/s, so the locked-in multiplier
	// sits a hair above 3.0.
	if *bet.CashoutMultiplier < 2.9 || *bet.CashoutMultiplier > 3.5 {
		t.Errorf("multiplier = %v, want around 3.0", *bet.CashoutMultiplier)
	}
}

func TestCurrentRound(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(t, store, testGameConfig())

	if _, err := eng.CurrentRound(); !errors.Is(err, model.ErrNoCurrentRound) {
		t.Fatalf("expected ErrNoCurrentRound, got %v", err)
	}

	pendingRound(eng, 1, 2.5)

	state, err := eng.CurrentRound()
	if err != nil {
		t.Fatalf("CurrentRound: %v", err)
	}
	if state.Status != model.RoundPending {
		t.Errorf("status = %q, want pending", state.Status)
	}
	if state.Multiplier != nil {
		t.Error("pending round must not expose a multiplier")
	}
	if state.CrashPoint != nil {
		t.Error("live round must not expose the crash point")
	}
	if state.CommitHash == "" {
		t.Error("commit hash must be public while betting is open")
	}

	activeRound(eng, 1, 5.0, 2*time.Second)

	state, err = eng.CurrentRound()
	if err != nil {
		t.Fatalf("CurrentRound: %v", err)
	}
	if state.Multiplier == nil || *state.Multiplier < 2.9 {
		t.Errorf("active round multiplier = %v, want around 3.0", state.Multiplier)
	}
	if state.CrashPoint != nil {
		t.Error("active round must not expose the crash point")
	}
}

func TestCurrentRoundSnapshotIsolated(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(t, store, testGameConfig())
	pendingRound(eng, 1, 5.0)

	placed, err := eng.PlaceBet(context.Background(), "player1",
		decimal.RequireFromString("10"), config.BTC, 1)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	state, err := eng.CurrentRound()
	if err != nil {
		t.Fatalf("CurrentRound: %v", err)
	}
	if len(state.Bets) != 1 {
		t.Fatalf("snapshot bets = %d, want 1", len(state.Bets))
	}
	snapshot := state.Bets[0]

	startedAt := time.Now().Add(-2 * time.Second)
	eng.mu.Lock()
	eng.current.Status = model.RoundActive
	eng.current.StartedAt = &startedAt
	eng.mu.Unlock()

	if _, err = eng.CashOut(context.Background(), "player1", 1, 1.5); err != nil {
		t.Fatalf("CashOut: %v", err)
	}

	// Copies handed out before the cashout must stay as they were.
	if snapshot.CashedOut() {
		t.Error("cashout visible through an earlier round snapshot")
	}
	if !snapshot.PayoutNotional.Equal(decimal.Zero) {
		t.Errorf("snapshot payout = %s, want 0", snapshot.PayoutNotional)
	}
	if placed.CashedOut() {
		t.Error("cashout visible through the bet returned at placement")
	}
}

func TestAbortedRoundRejectsCashout(t *testing.T) {
	cfg := testGameConfig()
	cfg.BettingWindow = 200 * time.Millisecond

	store := newFakeStore()
	store.updateErr = errors.New("storage down")

	eng, _, _ := newTestEngine(t, store, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- eng.runRound(context.Background()) }()

	// Stake a bet once the betting window opens.
	deadline := time.After(time.Second)
	for {
		_, err := eng.PlaceBet(context.Background(), "player1",
			decimal.RequireFromString("10"), config.BTC, 0)
		if err == nil {
			break
		}

		select {
		case <-deadline:
			t.Fatalf("could not place a bet: %v", err)
		case <-time.After(time.Millisecond):
		}
	}

	// Activation cannot persist the status, so the round must fail.
	var runErr error
	select {
	case runErr = <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("round did not abort")
	}
	if runErr == nil {
		t.Fatal("expected the round to fail on the status write")
	}

	_, err := eng.CashOut(context.Background(), "player1", 0, 0)
	if !errors.Is(err, model.ErrRoundNotActive) {
		t.Fatalf("cashout after abort: error = %v, want %v", err, model.ErrRoundNotActive)
	}
	if len(store.settled) != 0 {
		t.Error("no cashout may settle against an aborted round")
	}
}

func TestVerifyRound(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(t, store, testGameConfig())

	gen := provably_fair.NewGenerator(testGameConfig().MaxCrashSteps)
	commitment := gen.Commit(5)

	store.rounds[5] = &model.Round{
		RoundID:    5,
		Seed:       commitment.Seed,
		CommitHash: commitment.Hash,
		CrashPoint: commitment.CrashPoint,
		Status:     model.RoundCrashed,
	}
	store.rounds[6] = &model.Round{
		RoundID: 6,
		Status:  model.RoundPending,
	}

	verification, err := eng.VerifyRound(5)
	if err != nil {
		t.Fatalf("VerifyRound: %v", err)
	}
	if !verification.Valid {
		t.Error("genuine round must verify")
	}
	if verification.Seed != commitment.Seed {
		t.Error("verification must reveal the seed")
	}

	if _, err = eng.VerifyRound(6); !errors.Is(err, model.ErrSeedNotRevealed) {
		t.Fatalf("expected ErrSeedNotRevealed for a live round, got %v", err)
	}

	if _, err = eng.VerifyRound(42); !errors.Is(err, model.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}

func TestStartRoundRetriesOnDuplicate(t *testing.T) {
	store := newFakeStore()
	store.lastRoundID = 1
	store.duplicateFails = 1

	eng, _, _ := newTestEngine(t, store, testGameConfig())

	round, err := eng.startRound()
	if err != nil {
		t.Fatalf("startRound: %v", err)
	}

	if round.RoundID != 3 {
		t.Errorf("round id = %d, want 3 after one conflict", round.RoundID)
	}
}

func TestStartRoundGivesUpAfterRetries(t *testing.T) {
	store := newFakeStore()
	store.duplicateFails = 100

	eng, _, _ := newTestEngine(t, store, testGameConfig())

	if _, err := eng.startRound(); err == nil {
		t.Fatal("expected startRound to give up")
	}
}

func TestRoundLifecycle(t *testing.T) {
	cfg := config.GameConfig{
		BettingWindow: 10 * time.Millisecond,
		CoolDown:      5 * time.Millisecond,
		TickInterval:  time.Millisecond,
		GrowthRate:    100.0,
		MaxCrashSteps: 30,
		StartRetries:  3,
	}

	store := newFakeStore()
	eng, _, rec := newTestEngine(t, store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		eng.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if crashSeen(rec.events()) {
			break
		}

		select {
		case <-deadline:
			cancel()
			t.Fatal("no crash event within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	msgs := rec.events()
	if msgs[0].Event != event.RoundStartEvent {
		t.Fatalf("first event = %q, want round start", msgs[0].Event)
	}

	commitHash, _ := msgs[0].Data["commit_hash"].(string)
	if commitHash == "" {
		t.Fatal("round start must carry the commit hash")
	}
	if _, leaked := msgs[0].Data["seed"]; leaked {
		t.Fatal("round start must not leak the seed")
	}

	var (
		lastMultiplier float64
		crash          event.Message
	)

	for _, m := range msgs {
		switch m.Event {
		case event.MultiplierUpdateEvent:
			multiplier := m.Data["multiplier"].(float64)
			if multiplier < lastMultiplier {
				t.Fatalf("multiplier regressed: %v after %v", multiplier, lastMultiplier)
			}
			lastMultiplier = multiplier
		case event.RoundCrashEvent:
			crash = m
		}
		if crash.Event != "" {
			break
		}
	}

	crashPoint := crash.Data["crash_point"].(float64)
	if lastMultiplier != crashPoint {
		t.Errorf("final multiplier update = %v, want crash point %v", lastMultiplier, crashPoint)
	}

	seed := crash.Data["seed"].(string)
	roundID := crash.Data["round_id"].(int64)

	gen := provably_fair.NewGenerator(cfg.MaxCrashSteps)
	if !gen.Verify(seed, roundID, crash.Data["commit_hash"].(string), crashPoint) {
		t.Error("revealed seed must re-derive the published crash point")
	}
}

func crashSeen(msgs []event.Message) bool {
	for _, m := range msgs {
		if m.Event == event.RoundCrashEvent {
			return true
		}
	}

	return false
}
