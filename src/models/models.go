package models

import "preview-engine/src/futures"

// Decimal fields travel as base-10 strings end to end; nothing on the wire
// is ever a binary float.

type NewPairRequest struct {
	Symbol               string `json:"symbol"`
	CollateralLongToken  string `json:"collateral_long_token"`
	CollateralShortToken string `json:"collateral_short_token"`
	Leverage             string `json:"leverage"`
	MaxNotional          string `json:"max_notional"`
	MinQuantityBase      string `json:"min_quantity_base"`
	MarginRatio          string `json:"margin_ratio"`
	TakerFee             string `json:"taker_fee"`
	MakerFee             string `json:"maker_fee"`
	BaseTokenPrecision   int32  `json:"base_token_precision"`
}

type PairResponse struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

type ChangeActivePairRequest struct {
	Symbol string `json:"symbol"`
}

type ChangeLeverageRequest struct {
	Leverage    string `json:"leverage"`
	MaxNotional string `json:"max_notional"`
}

type UpdateBalanceRequest struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type PreviewRequest struct {
	PayToken  string `json:"pay_token"`
	PayAmount string `json:"pay_amount"`
	Quantity  string `json:"quantity"`
	// LimitPrice selects a limit order when non-empty; empty means market.
	LimitPrice           string `json:"limit_price,omitempty"`
	QuantityIsQuote      bool   `json:"quantity_is_quote"`
	IsBuy                bool   `json:"is_buy"`
	QuantityIsPercentage bool   `json:"quantity_is_percentage"`
}

type PreviewResponse struct {
	PreviewID string               `json:"preview_id"`
	Pair      string               `json:"pair"`
	Preview   futures.OrderPreview `json:"preview"`
}

type PriceLevelInfo struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type InitializeBookRequest struct {
	Asks [][2]string `json:"asks"` // [price, quantity] pairs
	Bids [][2]string `json:"bids"`
}

type UpdateBookRequest struct {
	Side   string      `json:"side"` // "ask" or "bid"
	Levels [][2]string `json:"levels"`
}

type DepthResponse struct {
	Symbol    string           `json:"symbol"`
	Timestamp int64            `json:"timestamp"` // unix timestamp in milliseconds
	Asks      []PriceLevelInfo `json:"asks"`      // sorted ascending (lowest first)
	Bids      []PriceLevelInfo `json:"bids"`      // sorted descending (highest first)
}

type BestQuoteResponse struct {
	BestAsk string `json:"best_ask,omitempty"`
	BestBid string `json:"best_bid,omitempty"`
	HasAsk  bool   `json:"has_ask"`
	HasBid  bool   `json:"has_bid"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	PreviewsComputed int64  `json:"previews_computed"`
}

type MetricsResponse struct {
	PreviewsComputed int64   `json:"previews_computed"`
	PreviewsRejected int64   `json:"previews_rejected"`
	BookWrites       int64   `json:"book_writes"`
	LatencyP50Ms     float64 `json:"latency_p50_ms"`
	LatencyP99Ms     float64 `json:"latency_p99_ms"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
}
