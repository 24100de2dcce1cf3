package futures

import (
	"fmt"

	"github.com/shopspring/decimal"

	"preview-engine/src/book"
)

var one = decimal.NewFromInt(1)

// Calculator derives order previews for one trading pair. Configuration is
// parsed once at construction; an unparseable value is a setup bug, not a
// runtime condition.
type Calculator struct {
	Leverage decimal.Decimal

	CollateralLongToken  string
	CollateralShortToken string

	MaxNotional        decimal.Decimal
	MinQuantityBase    decimal.Decimal
	MarginRatio        decimal.Decimal
	TakerFee           decimal.Decimal
	MakerFee           decimal.Decimal
	BaseTokenPrecision int32
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("futures: invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

// NewCalculator parses the per-market configuration strings. All seven
// decimal fields must parse; failure is fatal to the caller.
func NewCalculator(
	collateralLongToken, collateralShortToken string,
	leverage, maxNotional, minQuantityBase, marginRatio, takerFee, makerFee string,
	baseTokenPrecision int32,
) (*Calculator, error) {
	c := &Calculator{
		CollateralLongToken:  collateralLongToken,
		CollateralShortToken: collateralShortToken,
		BaseTokenPrecision:   baseTokenPrecision,
	}

	var err error
	if c.Leverage, err = parseDecimal(leverage, "leverage"); err != nil {
		return nil, err
	}
	if c.MaxNotional, err = parseDecimal(maxNotional, "max notional"); err != nil {
		return nil, err
	}
	if c.MinQuantityBase, err = parseDecimal(minQuantityBase, "min quantity base"); err != nil {
		return nil, err
	}
	if c.MarginRatio, err = parseDecimal(marginRatio, "margin ratio"); err != nil {
		return nil, err
	}
	if c.TakerFee, err = parseDecimal(takerFee, "taker fee"); err != nil {
		return nil, err
	}
	if c.MakerFee, err = parseDecimal(makerFee, "maker fee"); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Calculator) checkConfigured() error {
	if c.Leverage.IsZero() {
		return fmt.Errorf("futures: leverage not set, pair must be initialized first")
	}
	if c.MaxNotional.IsZero() {
		return fmt.Errorf("futures: max notional not set, pair must be initialized first")
	}
	if c.CollateralLongToken == "" {
		return fmt.Errorf("futures: long collateral token not set, pair must be initialized first")
	}
	if c.CollateralShortToken == "" {
		return fmt.Errorf("futures: short collateral token not set, pair must be initialized first")
	}
	return nil
}

// ComputeOpenOrder derives the preview for a prospective open order.
//
// Sizing: when quantity is zero and payAmount is positive, quantity becomes
// payAmount*leverage in quote terms. When quantityIsPercentage is set, the
// (possibly derived) quantity is then reinterpreted as a fraction of
// balance*leverage; the two steps compound.
//
// Market orders price against the ladder's dry-run fill; limit orders use
// limitPrice directly with zero slippage. A book too shallow to fill the
// request yields the zero preview, not an error.
func (c *Calculator) ComputeOpenOrder(
	orderType OrderType,
	ladder *book.Ladder,
	balance decimal.Decimal,
	payAmount decimal.Decimal,
	quantity decimal.Decimal,
	limitPrice *decimal.Decimal,
	quantityIsQuote bool,
	isBuy bool,
	quantityIsPercentage bool,
) (OrderPreview, error) {
	if err := c.checkConfigured(); err != nil {
		return OrderPreview{}, err
	}
	if !payAmount.IsPositive() && !quantity.IsPositive() {
		return OrderPreview{}, fmt.Errorf("futures: must have positive pay amount or quantity")
	}

	// The caller supplies balance already in the settlement currency.
	quoteBalance := balance

	if quantity.IsZero() && payAmount.IsPositive() {
		quantity = payAmount.Mul(c.Leverage)
		// pay amount is always quoted in the settlement currency
		quantityIsQuote = true
	}

	if quantityIsPercentage {
		quantity = balance.Mul(c.Leverage).Mul(quantity)
	}

	var entryPrice, totalBaseFilled, slippage decimal.Decimal
	switch orderType {
	case TypeMarket:
		result := ladder.ComputeDryRun(quantity, quantityIsQuote, isBuy)
		entryPrice, totalBaseFilled, slippage = result.AvgPrice, result.FilledBase, result.Slippage
	case TypeLimit:
		if limitPrice == nil {
			return OrderPreview{}, fmt.Errorf("futures: limit order requires a limit price")
		}
		entryPrice = *limitPrice
		// edge case: a zero limit price is the degenerate preview, and it
		// must be caught before the quote-to-base division below
		if entryPrice.IsZero() {
			return emptyPreview(entryPrice), nil
		}
		if quantityIsQuote {
			totalBaseFilled = quantity.Div(entryPrice)
		} else {
			totalBaseFilled = quantity
		}
		slippage = decimal.Zero
	default:
		return OrderPreview{}, fmt.Errorf("futures: unknown order type %q", orderType)
	}

	totalBaseFilled = totalBaseFilled.Truncate(c.BaseTokenPrecision)

	if entryPrice.IsZero() || totalBaseFilled.IsZero() {
		return emptyPreview(entryPrice), nil
	}

	openNotional := totalBaseFilled.Mul(entryPrice)

	openFeeRate := c.TakerFee
	if orderType == TypeLimit {
		openFeeRate = c.MakerFee
	}
	openFee := openFeeRate.Mul(openNotional)

	// TODO: swap fee needs the funding-rate source before it can be computed
	swapFee := decimal.Zero

	maxBalance := quoteBalance.Mul(one.Sub(openFeeRate))

	initialMargin := c.ComputeMargin(totalBaseFilled, entryPrice)
	maintenanceMargin := initialMargin.Mul(c.MarginRatio)

	var liquidationPrice decimal.Decimal
	if isBuy {
		liquidationPrice = maintenanceMargin.Sub(initialMargin).Add(openNotional).Div(totalBaseFilled)
	} else {
		liquidationPrice = openNotional.Sub(maintenanceMargin).Add(initialMargin).Div(totalBaseFilled)
	}

	maxQuantityBase := c.MaxNotional.Div(entryPrice)
	if maxBalance.IsPositive() {
		maxQuantityBase = decimal.Min(maxQuantityBase, maxBalance.Mul(c.Leverage).Div(entryPrice))
	}
	maxQuantityBase = maxQuantityBase.Truncate(c.BaseTokenPrecision)

	minQuantityBase := c.MinQuantityBase
	maxQuantityQuote := c.MaxNotional
	minQuantityQuote := minQuantityBase.Mul(entryPrice).Truncate(c.BaseTokenPrecision)

	return OrderPreview{
		EntryPrice:       entryPrice,
		LiquidationPrice: liquidationPrice,
		MaxQuantityBase:  maxQuantityBase,
		MinQuantityBase:  minQuantityBase,
		MaxQuantityQuote: maxQuantityQuote,
		MinQuantityQuote: minQuantityQuote,
		Fees:             openFee.Add(swapFee),
		SwapFee:          swapFee,
		Slippage:         slippage,
		CostLong:         initialMargin,
		CostLongBase:     initialMargin.Div(entryPrice),
		CostShort:        initialMargin,
		OpenQuantity:     totalBaseFilled,
		OpenNotional:     openNotional,
	}, nil
}

// ComputeMargin returns the initial margin for a fill of quantity at entryPrice.
func (c *Calculator) ComputeMargin(quantity, entryPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(entryPrice).Div(c.Leverage)
}

// ChangeLeverage replaces the leverage and max notional in place. Previously
// produced previews are unaffected.
func (c *Calculator) ChangeLeverage(leverage, maxNotional string) error {
	newLeverage, err := parseDecimal(leverage, "leverage")
	if err != nil {
		return err
	}
	newMaxNotional, err := parseDecimal(maxNotional, "max notional")
	if err != nil {
		return err
	}
	c.Leverage = newLeverage
	c.MaxNotional = newMaxNotional
	return nil
}
