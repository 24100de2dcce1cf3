package book

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Level is an aggregated (price, quantity) entry on one side of the ladder.
// Quantities are never zero: a zero-quantity update removes the level.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

type LevelItem struct {
	Level *Level
}

func (i *LevelItem) Less(than btree.Item) bool {
	other := than.(*LevelItem)
	return i.Level.Price.GreaterThan(other.Level.Price)
}

type LevelItemAscending struct {
	Level *Level
}

func (i *LevelItemAscending) Less(than btree.Item) bool {
	other := than.(*LevelItemAscending)
	return i.Level.Price.LessThan(other.Level.Price)
}

// Ladder holds the resting liquidity for one instrument. Asks iterate
// ascending (lowest first), bids descending (highest first), so Ascend
// walks both sides best-to-worst.
type Ladder struct {
	Symbol string
	Asks   *btree.BTree
	Bids   *btree.BTree
	mu     sync.RWMutex
}

func NewLadder(symbol string) *Ladder {
	return &Ladder{
		Symbol: symbol,
		Asks:   btree.New(32),
		Bids:   btree.New(32),
	}
}

// Initialize discards all existing levels and repopulates both sides.
// Duplicate prices in the input collapse to the last-seen quantity.
func (l *Ladder) Initialize(asks, bids []Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Asks = btree.New(32)
	l.Bids = btree.New(32)

	for _, lvl := range asks {
		lvl := lvl
		l.Asks.ReplaceOrInsert(&LevelItemAscending{Level: &lvl})
	}
	for _, lvl := range bids {
		lvl := lvl
		l.Bids.ReplaceOrInsert(&LevelItem{Level: &lvl})
	}
}

// Update applies a batch of incremental level changes to one side. A zero
// quantity deletes the level, anything else inserts or overwrites it.
func (l *Ladder) Update(isAsk bool, levels []Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, lvl := range levels {
		lvl := lvl
		if isAsk {
			if lvl.Quantity.IsZero() {
				l.Asks.Delete(&LevelItemAscending{Level: &lvl})
			} else {
				l.Asks.ReplaceOrInsert(&LevelItemAscending{Level: &lvl})
			}
		} else {
			if lvl.Quantity.IsZero() {
				l.Bids.Delete(&LevelItem{Level: &lvl})
			} else {
				l.Bids.ReplaceOrInsert(&LevelItem{Level: &lvl})
			}
		}
	}
}

// BestAskBid returns the lowest ask and highest bid. The ok flags report
// whether the corresponding side has any levels.
func (l *Ladder) BestAskBid() (bestAsk, bestBid decimal.Decimal, hasAsk, hasBid bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bestAskBidLocked()
}

func (l *Ladder) bestAskBidLocked() (bestAsk, bestBid decimal.Decimal, hasAsk, hasBid bool) {
	if item := l.Asks.Min(); item != nil {
		bestAsk = item.(*LevelItemAscending).Level.Price
		hasAsk = true
	}
	if item := l.Bids.Min(); item != nil {
		bestBid = item.(*LevelItem).Level.Price
		hasBid = true
	}
	return bestAsk, bestBid, hasAsk, hasBid
}

// Depth returns a snapshot of both sides, asks ascending and bids descending
// by price (best first on each side, matching display conventions).
func (l *Ladder) Depth() (asks, bids []Level) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	asks = make([]Level, 0, l.Asks.Len())
	bids = make([]Level, 0, l.Bids.Len())

	l.Asks.Ascend(func(item btree.Item) bool {
		asks = append(asks, *item.(*LevelItemAscending).Level)
		return true
	})
	l.Bids.Ascend(func(item btree.Item) bool {
		bids = append(bids, *item.(*LevelItem).Level)
		return true
	})

	return asks, bids
}

// GroupPrices buckets every level into floor(price/bucket)*bucket, summing
// quantities within a bucket. Output ordering matches Depth.
func (l *Ladder) GroupPrices(bucket decimal.Decimal) (asks, bids []Level, err error) {
	if !bucket.IsPositive() {
		return nil, nil, fmt.Errorf("book: grouping size must be positive, got %s", bucket)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	grouped := btree.New(32)
	l.Asks.Ascend(func(item btree.Item) bool {
		lvl := item.(*LevelItemAscending).Level
		bucketed := lvl.Price.Div(bucket).Floor().Mul(bucket)
		probe := &LevelItemAscending{Level: &Level{Price: bucketed}}
		if existing := grouped.Get(probe); existing != nil {
			entry := existing.(*LevelItemAscending).Level
			entry.Quantity = entry.Quantity.Add(lvl.Quantity)
		} else {
			grouped.ReplaceOrInsert(&LevelItemAscending{Level: &Level{Price: bucketed, Quantity: lvl.Quantity}})
		}
		return true
	})
	asks = make([]Level, 0, grouped.Len())
	grouped.Ascend(func(item btree.Item) bool {
		asks = append(asks, *item.(*LevelItemAscending).Level)
		return true
	})

	grouped = btree.New(32)
	l.Bids.Ascend(func(item btree.Item) bool {
		lvl := item.(*LevelItem).Level
		bucketed := lvl.Price.Div(bucket).Floor().Mul(bucket)
		probe := &LevelItem{Level: &Level{Price: bucketed}}
		if existing := grouped.Get(probe); existing != nil {
			entry := existing.(*LevelItem).Level
			entry.Quantity = entry.Quantity.Add(lvl.Quantity)
		} else {
			grouped.ReplaceOrInsert(&LevelItem{Level: &Level{Price: bucketed, Quantity: lvl.Quantity}})
		}
		return true
	})
	bids = make([]Level, 0, grouped.Len())
	grouped.Ascend(func(item btree.Item) bool {
		bids = append(bids, *item.(*LevelItem).Level)
		return true
	})

	return asks, bids, nil
}
