// Package session owns one user's preview state: the shared price ladder,
// one calculator per registered trading pair, the active pair, and per-token
// balances. It replaces the process-global manager the platform bindings used
// to carry; callers construct a Session explicitly and pass it down.
package session

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"preview-engine/src/book"
	"preview-engine/src/futures"
)

type Session struct {
	ladder      *book.Ladder
	calculators map[string]*futures.Calculator
	balances    map[string]decimal.Decimal
	activePair  string
	mu          sync.RWMutex
}

func NewSession(symbol string) *Session {
	return &Session{
		ladder:      book.NewLadder(symbol),
		calculators: make(map[string]*futures.Calculator),
		balances:    make(map[string]decimal.Decimal),
	}
}

// Ladder exposes the shared book for the feed producer. The ladder carries
// its own lock; the session lock only guards pair and balance state.
func (s *Session) Ladder() *book.Ladder {
	return s.ladder
}

// NewPair registers (or replaces) the calculator for a pair and makes that
// pair active.
func (s *Session) NewPair(
	pairSymbol, collateralLongToken, collateralShortToken string,
	leverage, maxNotional, minQuantityBase, marginRatio, takerFee, makerFee string,
	baseTokenPrecision int32,
) error {
	calc, err := futures.NewCalculator(
		collateralLongToken, collateralShortToken,
		leverage, maxNotional, minQuantityBase, marginRatio, takerFee, makerFee,
		baseTokenPrecision,
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculators[pairSymbol] = calc
	s.activePair = pairSymbol
	return nil
}

func (s *Session) PairExists(pairSymbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.calculators[pairSymbol]
	return ok
}

func (s *Session) ActivePair() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePair
}

func (s *Session) ChangeActivePair(pairSymbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calculators[pairSymbol]; !ok {
		return fmt.Errorf("session: pair %s not initialized", pairSymbol)
	}
	s.activePair = pairSymbol
	return nil
}

// ChangeLeverage replaces leverage and max notional on the active pair.
func (s *Session) ChangeLeverage(leverage, maxNotional string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	calc, err := s.activeCalculatorLocked()
	if err != nil {
		return err
	}
	return calc.ChangeLeverage(leverage, maxNotional)
}

func (s *Session) UpdateBalance(token, balance string) error {
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("session: invalid balance %q for %s: %w", balance, token, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[token] = amount
	return nil
}

// Balance returns the held amount for a token; unknown tokens read as zero.
func (s *Session) Balance(token string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[token]
}

func (s *Session) activeCalculatorLocked() (*futures.Calculator, error) {
	calc, ok := s.calculators[s.activePair]
	if !ok {
		return nil, fmt.Errorf("session: no active pair, register a pair configuration first")
	}
	return calc, nil
}

// ComputeOpenOrder previews an order on the active pair. A non-empty
// limitPrice selects a limit order; otherwise the ladder is consulted for a
// market fill. The pay token's balance feeds the sizing limits; an unknown
// token contributes a zero balance.
func (s *Session) ComputeOpenOrder(
	payToken, payAmount, quantity, limitPrice string,
	quantityIsQuote, isBuy, quantityIsPercentage bool,
) (futures.OrderPreview, error) {
	pay, err := decimal.NewFromString(payAmount)
	if err != nil {
		return futures.OrderPreview{}, fmt.Errorf("session: invalid pay amount %q: %w", payAmount, err)
	}
	qty, err := decimal.NewFromString(quantity)
	if err != nil {
		return futures.OrderPreview{}, fmt.Errorf("session: invalid quantity %q: %w", quantity, err)
	}

	orderType := futures.TypeMarket
	var price *decimal.Decimal
	if limitPrice != "" {
		parsed, err := decimal.NewFromString(limitPrice)
		if err != nil {
			return futures.OrderPreview{}, fmt.Errorf("session: invalid limit price %q: %w", limitPrice, err)
		}
		orderType = futures.TypeLimit
		price = &parsed
	}

	// Held across the computation so ChangeLeverage cannot mutate the
	// calculator mid-preview. The ladder carries its own lock.
	s.mu.RLock()
	defer s.mu.RUnlock()

	calc, err := s.activeCalculatorLocked()
	if err != nil {
		return futures.OrderPreview{}, err
	}
	balance := s.balances[payToken]

	return calc.ComputeOpenOrder(
		orderType, s.ladder, balance,
		pay, qty, price,
		quantityIsQuote, isBuy, quantityIsPercentage,
	)
}

// Ladder pass-throughs for the request path.

func (s *Session) InitializeBook(asks, bids []book.Level) {
	s.ladder.Initialize(asks, bids)
}

func (s *Session) UpdateBook(isAsk bool, levels []book.Level) {
	s.ladder.Update(isAsk, levels)
}

func (s *Session) Depth() (asks, bids []book.Level) {
	return s.ladder.Depth()
}

func (s *Session) GroupPrices(bucket decimal.Decimal) (asks, bids []book.Level, err error) {
	return s.ladder.GroupPrices(bucket)
}

func (s *Session) BestAskBid() (bestAsk, bestBid decimal.Decimal, hasAsk, hasBid bool) {
	return s.ladder.BestAskBid()
}
