package book

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// dryRunPrecision is the decimal-place clamp applied to dry-run outputs.
// Digits beyond it are truncated toward zero, never rounded up, so a
// favorable-looking slippage is never overstated.
const dryRunPrecision = 9

// DryRun is the outcome of a simulated fill. An all-zero value is the
// sentinel for insufficient liquidity, not a real zero-price quote.
type DryRun struct {
	AvgPrice   decimal.Decimal
	FilledBase decimal.Decimal
	Slippage   decimal.Decimal // percent vs the pre-trade best quote
}

// IsZero reports whether the result is the insufficient-liquidity sentinel.
func (d DryRun) IsZero() bool {
	return d.AvgPrice.IsZero() && d.FilledBase.IsZero() && d.Slippage.IsZero()
}

// ComputeDryRun simulates consuming liquidity from the side a taker would
// cross (asks for a buy, bids for a sell), walking levels best to worst.
// fillAmount is in quote currency when fillByQuote is set, base units
// otherwise. The ladder is not mutated.
func (l *Ladder) ComputeDryRun(fillAmount decimal.Decimal, fillByQuote, isBuy bool) DryRun {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var tree *btree.BTree
	if isBuy {
		tree = l.Asks
	} else {
		tree = l.Bids
	}

	// edge case: empty crossed side must short-circuit before any division
	if tree.Len() == 0 {
		return DryRun{}
	}

	remaining := fillAmount
	totalQuote := decimal.Zero
	totalBase := decimal.Zero

	tree.Ascend(func(item btree.Item) bool {
		var lvl *Level
		if isBuy {
			lvl = item.(*LevelItemAscending).Level
		} else {
			lvl = item.(*LevelItem).Level
		}

		available := lvl.Quantity
		if fillByQuote {
			available = lvl.Quantity.Mul(lvl.Price)
		}

		if remaining.GreaterThanOrEqual(available) {
			remaining = remaining.Sub(available)
			totalQuote = totalQuote.Add(lvl.Quantity.Mul(lvl.Price))
			totalBase = totalBase.Add(lvl.Quantity)
		} else {
			take := remaining
			if fillByQuote {
				take = remaining.Div(lvl.Price)
			}
			totalQuote = totalQuote.Add(take.Mul(lvl.Price))
			totalBase = totalBase.Add(take)
			remaining = decimal.Zero
			return false
		}

		return !remaining.IsZero()
	})

	if !remaining.IsZero() || totalBase.IsZero() {
		return DryRun{}
	}

	avgPrice := totalQuote.Div(totalBase)

	bestAsk, bestBid, _, _ := l.bestAskBidLocked()
	var slippage decimal.Decimal
	if isBuy {
		slippage = avgPrice.Sub(bestAsk).Div(bestAsk).Mul(decimal.NewFromInt(100))
	} else {
		slippage = bestBid.Sub(avgPrice).Div(bestBid).Mul(decimal.NewFromInt(100))
	}

	return DryRun{
		AvgPrice:   avgPrice.Truncate(dryRunPrecision),
		FilledBase: totalBase.Truncate(dryRunPrecision),
		Slippage:   slippage.Truncate(dryRunPrecision),
	}
}
