package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/model"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_Price(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "bitcoin" {
			t.Errorf("unexpected ids param: %s", r.URL.Query().Get("ids"))
		}

		fmt.Fprint(w, `{"bitcoin":{"usd":50000.25}}`)
	}))
	defer server.Close()

	client := New(testLogger(), server.URL, time.Second, time.Second)

	price, err := client.Price(context.Background(), config.BTC)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}

	want := decimal.RequireFromString("50000.25")
	if !price.Equal(want) {
		t.Errorf("unexpected price, want: %s, got: %s", want, price)
	}
}

func TestClient_PriceCached(t *testing.T) {
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"ethereum":{"usd":3000}}`)
	}))
	defer server.Close()

	client := New(testLogger(), server.URL, time.Minute, time.Second)

	for i := 0; i < 3; i++ {
		if _, err := client.Price(context.Background(), config.ETH); err != nil {
			t.Fatalf("price call %d failed: %v", i, err)
		}
	}

	if calls != 1 {
		t.Errorf("expected single upstream call, got %d", calls)
	}
}

func TestClient_PriceUpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(testLogger(), server.URL, time.Second, time.Second)

	_, err := client.Price(context.Background(), config.BTC)
	if !errors.Is(err, model.ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got: %v", err)
	}
}

func TestClient_PriceInvalidCurrency(t *testing.T) {
	client := New(testLogger(), "http://localhost:0", time.Second, time.Second)

	_, err := client.Price(context.Background(), config.Currency("DOGE"))
	if !errors.Is(err, model.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got: %v", err)
	}
}
