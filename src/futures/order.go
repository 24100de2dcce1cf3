package futures

import "github.com/shopspring/decimal"

type OrderType string

const (
	TypeLimit  OrderType = "LIMIT"
	TypeMarket OrderType = "MARKET"
)

// OrderPreview is the fully-derived terms of a prospective leveraged order.
// It is an immutable value snapshot, produced fresh on every computation.
// Every decimal crosses the API boundary as its exact base-10 string form.
type OrderPreview struct {
	EntryPrice       decimal.Decimal `json:"entry_price"`
	LiquidationPrice decimal.Decimal `json:"liquidation_price"`
	MaxQuantityBase  decimal.Decimal `json:"max_quantity_base"`
	MinQuantityBase  decimal.Decimal `json:"min_quantity_base"`
	// MaxQuantityQuote reports the configured max notional directly rather
	// than recomputing base*price.
	MaxQuantityQuote decimal.Decimal `json:"max_quantity_quote"`
	MinQuantityQuote decimal.Decimal `json:"min_quantity_quote"`
	Fees             decimal.Decimal `json:"fees"`
	// SwapFee is a named placeholder and is always zero.
	SwapFee      decimal.Decimal `json:"swap_fee"`
	Slippage     decimal.Decimal `json:"slippage"`
	CostLong     decimal.Decimal `json:"cost_long"`
	CostLongBase decimal.Decimal `json:"cost_long_base"`
	CostShort    decimal.Decimal `json:"cost_short"`
	OpenQuantity decimal.Decimal `json:"open_quantity"`
	OpenNotional decimal.Decimal `json:"open_notional"`
}

// emptyPreview returns the all-zero preview carrying only the entry price.
// This is the "cannot fill" outcome, not an error.
func emptyPreview(entryPrice decimal.Decimal) OrderPreview {
	return OrderPreview{
		EntryPrice:       entryPrice,
		LiquidationPrice: decimal.Zero,
		MaxQuantityBase:  decimal.Zero,
		MinQuantityBase:  decimal.Zero,
		MaxQuantityQuote: decimal.Zero,
		MinQuantityQuote: decimal.Zero,
		Fees:             decimal.Zero,
		SwapFee:          decimal.Zero,
		Slippage:         decimal.Zero,
		CostLong:         decimal.Zero,
		CostLongBase:     decimal.Zero,
		CostShort:        decimal.Zero,
		OpenQuantity:     decimal.Zero,
		OpenNotional:     decimal.Zero,
	}
}
