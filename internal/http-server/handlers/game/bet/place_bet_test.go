package place_bet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/model"
	"golang.org/x/exp/slog"
)

type fakeEngine struct {
	bet *model.Bet
	err error

	gotPlayerID string
	gotNotional decimal.Decimal
	gotCurrency config.Currency
	gotRoundID  int64
}

func (f *fakeEngine) PlaceBet(_ context.Context, playerID string, notional decimal.Decimal, currency config.Currency, roundID int64) (*model.Bet, error) {
	f.gotPlayerID = playerID
	f.gotNotional = notional
	f.gotCurrency = currency
	f.gotRoundID = roundID

	return f.bet, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlaceBetHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		engine     *fakeEngine
		wantStatus int
	}{
		{
			name: "success",
			body: `{"player_id":"player1","amount":10,"currency":"BTC","round_id":1}`,
			engine: &fakeEngine{bet: &model.Bet{
				RoundID:        1,
				PlayerID:       "player1",
				NotionalAmount: decimal.RequireFromString("10"),
				AssetAmount:    decimal.RequireFromString("0.0002"),
				Currency:       config.BTC,
			}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing player id",
			body:       `{"amount":10,"currency":"BTC"}`,
			engine:     &fakeEngine{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero amount",
			body:       `{"player_id":"player1","amount":0,"currency":"BTC"}`,
			engine:     &fakeEngine{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported currency",
			body:       `{"player_id":"player1","amount":10,"currency":"DOGE"}`,
			engine:     &fakeEngine{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "betting window closed",
			body:       `{"player_id":"player1","amount":10,"currency":"BTC","round_id":1}`,
			engine:     &fakeEngine{err: model.ErrRoundNotPending},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "insufficient balance",
			body:       `{"player_id":"player1","amount":10,"currency":"BTC","round_id":1}`,
			engine:     &fakeEngine{err: model.ErrInsufficientBalance},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "duplicate bet",
			body:       `{"player_id":"player1","amount":10,"currency":"BTC","round_id":1}`,
			engine:     &fakeEngine{err: model.ErrDuplicateBet},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewBet(discardLogger(), tc.engine).New()

			req := httptest.NewRequest(http.MethodPost, "/api/game/bet",
				bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()

			handler(rec, req)

			var body Response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if body.Status != tc.wantStatus {
				t.Errorf("status = %d, want %d (error: %s)", body.Status, tc.wantStatus, body.Error)
			}

			if tc.wantStatus == http.StatusOK {
				if body.Bet == nil {
					t.Fatal("successful response must carry the bet")
				}
				if tc.engine.gotPlayerID != "player1" {
					t.Errorf("engine got player %q", tc.engine.gotPlayerID)
				}
				if !tc.engine.gotNotional.Equal(decimal.RequireFromString("10")) {
					t.Errorf("engine got notional %s", tc.engine.gotNotional)
				}
			}
		})
	}
}
