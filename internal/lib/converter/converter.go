package converter

import (
	"github.com/shopspring/decimal"
)

// assetScale is the number of decimal places kept for asset quantities,
// notionalScale for fiat amounts.
const (
	assetScale    = 12
	notionalScale = 2
)

// NotionalToAsset converts a fiat amount to an asset quantity at the given price.
func NotionalToAsset(notional, price decimal.Decimal) decimal.Decimal {
	return notional.DivRound(price, assetScale)
}

// AssetToNotional converts an asset quantity to its fiat value at the given price.
func AssetToNotional(asset, price decimal.Decimal) decimal.Decimal {
	return asset.Mul(price).Round(notionalScale)
}

// PayoutNotional applies a cashout multiplier to the bet's fiat stake.
func PayoutNotional(notional decimal.Decimal, multiplier float64) decimal.Decimal {
	return notional.Mul(decimal.NewFromFloat(multiplier)).Round(notionalScale)
}
