package config

type Currency string

const (
	BTC Currency = "BTC"
	ETH Currency = "ETH"
)

func (c Currency) Valid() bool {
	switch c {
	case BTC, ETH:
		return true
	}

	return false
}

// CoinGeckoID maps the currency to the identifier used by the price API.
func (c Currency) CoinGeckoID() string {
	switch c {
	case BTC:
		return "bitcoin"
	case ETH:
		return "ethereum"
	}

	return ""
}
