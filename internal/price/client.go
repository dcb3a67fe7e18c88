package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/lib/logger/sl"
	"go-crash/internal/model"
	"golang.org/x/exp/slog"
)

const (
	defaultBaseURL  = "https://api.coingecko.com/api/v3"
	defaultCacheTTL = 10 * time.Second
	defaultTimeout  = 10 * time.Second
)

// Client fetches spot prices from the CoinGecko simple-price API. Responses
// are cached with a short TTL so bet/cashout bursts do not hammer the
// upstream; a stale price within the TTL is acceptable for conversion.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

func New(log *slog.Logger, baseURL string, ttl, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		log:        log,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(ttl, 2*ttl),
	}
}

// Price returns the fiat price for one unit of the asset. Upstream failures
// surface as ErrPriceUnavailable so callers reject the request instead of
// guessing a price.
func (c *Client) Price(ctx context.Context, currency config.Currency) (decimal.Decimal, error) {
	const op = "price.Client.Price"

	if !currency.Valid() {
		return decimal.Zero, fmt.Errorf("%s: %w", op, model.ErrInvalidCurrency)
	}

	cacheKey := string(currency) + "_usd"

	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(decimal.Decimal), nil
	}

	price, err := c.fetch(ctx, currency)
	if err != nil {
		c.log.Error("failed to fetch price",
			sl.String("currency", string(currency)),
			sl.Err(err))

		return decimal.Zero, fmt.Errorf("%s: %w: %v", op, model.ErrPriceUnavailable, err)
	}

	c.cache.Set(cacheKey, price, cache.DefaultExpiration)

	return price, nil
}

func (c *Client) fetch(ctx context.Context, currency config.Currency) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, currency.CoinGeckoID())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, err
	}

	var data map[string]map[string]float64
	if err = json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, err
	}

	quote, ok := data[currency.CoinGeckoID()]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s in response", currency)
	}

	usd, ok := quote["usd"]
	if !ok || usd <= 0 {
		return decimal.Zero, fmt.Errorf("invalid usd quote for %s", currency)
	}

	return decimal.NewFromFloat(usd), nil
}
