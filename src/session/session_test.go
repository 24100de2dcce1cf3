package session

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"preview-engine/src/book"
)

func newPair(t *testing.T, s *Session, symbol string) {
	t.Helper()
	err := s.NewPair(symbol, "USDT", "USDT", "10", "50000", "0.001", "0.03", "0.001", "0.0005", 3)
	if err != nil {
		t.Fatalf("NewPair failed: %v", err)
	}
}

func seedBook(s *Session) {
	asks := []book.Level{
		{Price: decimal.RequireFromString("10000"), Quantity: decimal.RequireFromString("1")},
		{Price: decimal.RequireFromString("10100"), Quantity: decimal.RequireFromString("1")},
	}
	bids := []book.Level{
		{Price: decimal.RequireFromString("9900"), Quantity: decimal.RequireFromString("1")},
		{Price: decimal.RequireFromString("9800"), Quantity: decimal.RequireFromString("1")},
	}
	s.InitializeBook(asks, bids)
}

func TestNewPairSetsActive(t *testing.T) {
	s := NewSession("BTCBUSD")

	if s.ActivePair() != "" {
		t.Errorf("Fresh session should have no active pair, got: %s", s.ActivePair())
	}

	newPair(t, s, "BTCBUSD")
	if s.ActivePair() != "BTCBUSD" {
		t.Errorf("Expected active pair BTCBUSD, got: %s", s.ActivePair())
	}
	if !s.PairExists("BTCBUSD") {
		t.Error("Registered pair should exist")
	}
	if s.PairExists("ETHBUSD") {
		t.Error("Unregistered pair should not exist")
	}

	// registering a second pair switches the active pair to it
	newPair(t, s, "ETHBUSD")
	if s.ActivePair() != "ETHBUSD" {
		t.Errorf("Expected active pair ETHBUSD, got: %s", s.ActivePair())
	}
}

func TestNewPairInvalidConfig(t *testing.T) {
	s := NewSession("BTCBUSD")
	err := s.NewPair("BTCBUSD", "USDT", "USDT", "ten", "50000", "0.001", "0.03", "0.001", "0.0005", 3)
	if err == nil {
		t.Error("Expected error for unparseable leverage")
	}
	if s.PairExists("BTCBUSD") {
		t.Error("Failed registration must not create the pair")
	}
}

func TestChangeActivePair(t *testing.T) {
	s := NewSession("BTCBUSD")
	newPair(t, s, "BTCBUSD")
	newPair(t, s, "ETHBUSD")

	if err := s.ChangeActivePair("BTCBUSD"); err != nil {
		t.Fatalf("ChangeActivePair failed: %v", err)
	}
	if s.ActivePair() != "BTCBUSD" {
		t.Errorf("Expected active pair BTCBUSD, got: %s", s.ActivePair())
	}

	if err := s.ChangeActivePair("SOLBUSD"); err == nil {
		t.Error("Expected error for unknown pair")
	}
	if s.ActivePair() != "BTCBUSD" {
		t.Error("Failed switch must not change the active pair")
	}
}

func TestChangeLeverageRequiresActivePair(t *testing.T) {
	s := NewSession("BTCBUSD")
	if err := s.ChangeLeverage("20", "100000"); err == nil {
		t.Error("Expected error with no active pair")
	}

	newPair(t, s, "BTCBUSD")
	if err := s.ChangeLeverage("20", "100000"); err != nil {
		t.Errorf("ChangeLeverage failed: %v", err)
	}
}

func TestBalances(t *testing.T) {
	s := NewSession("BTCBUSD")

	if !s.Balance("USDT").IsZero() {
		t.Errorf("Unknown token should read as zero, got: %s", s.Balance("USDT"))
	}

	if err := s.UpdateBalance("USDT", "1000.5"); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}
	if !s.Balance("USDT").Equal(decimal.RequireFromString("1000.5")) {
		t.Errorf("Expected balance 1000.5, got: %s", s.Balance("USDT"))
	}

	if err := s.UpdateBalance("USDT", "not-a-number"); err == nil {
		t.Error("Expected error for unparseable balance")
	}
	if !s.Balance("USDT").Equal(decimal.RequireFromString("1000.5")) {
		t.Error("Failed update must not change the balance")
	}
}

func TestComputeOpenOrderMarket(t *testing.T) {
	s := NewSession("BTCBUSD")
	newPair(t, s, "BTCBUSD")
	seedBook(s)

	if err := s.UpdateBalance("USDT", "1000"); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	// empty limit price selects a market order against the ladder
	preview, err := s.ComputeOpenOrder("USDT", "100", "0", "", false, true, false)
	if err != nil {
		t.Fatalf("ComputeOpenOrder failed: %v", err)
	}
	if !preview.EntryPrice.Equal(decimal.RequireFromString("10000")) {
		t.Errorf("Expected entry price 10000, got: %s", preview.EntryPrice)
	}
	if !preview.OpenQuantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Expected open quantity 0.1, got: %s", preview.OpenQuantity)
	}
	if !preview.CostLong.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected cost long 100, got: %s", preview.CostLong)
	}
}

func TestComputeOpenOrderLimit(t *testing.T) {
	s := NewSession("BTCBUSD")
	newPair(t, s, "BTCBUSD")
	seedBook(s)

	preview, err := s.ComputeOpenOrder("USDT", "0", "0.1", "9500", false, true, false)
	if err != nil {
		t.Fatalf("ComputeOpenOrder failed: %v", err)
	}
	if !preview.EntryPrice.Equal(decimal.RequireFromString("9500")) {
		t.Errorf("Expected entry price 9500, got: %s", preview.EntryPrice)
	}
}

func TestComputeOpenOrderErrors(t *testing.T) {
	s := NewSession("BTCBUSD")

	// no pair registered yet
	if _, err := s.ComputeOpenOrder("USDT", "100", "0", "", false, true, false); err == nil {
		t.Error("Expected error with no active pair")
	}

	newPair(t, s, "BTCBUSD")
	seedBook(s)

	if _, err := s.ComputeOpenOrder("USDT", "abc", "0", "", false, true, false); err == nil {
		t.Error("Expected error for unparseable pay amount")
	}
	if _, err := s.ComputeOpenOrder("USDT", "0", "xyz", "", false, true, false); err == nil {
		t.Error("Expected error for unparseable quantity")
	}
	if _, err := s.ComputeOpenOrder("USDT", "0", "0.1", "bad", false, true, false); err == nil {
		t.Error("Expected error for unparseable limit price")
	}
}

func TestConcurrentLeverageChangeAndPreview(t *testing.T) {
	s := NewSession("BTCBUSD")
	newPair(t, s, "BTCBUSD")
	seedBook(s)

	if err := s.UpdateBalance("USDT", "1000"); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	// leverage changes and previews race on the active calculator; run
	// them in parallel so the race detector can catch unguarded access
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			lev := "10"
			if i%2 == 1 {
				lev = "20"
			}
			if err := s.ChangeLeverage(lev, "50000"); err != nil {
				t.Errorf("ChangeLeverage failed: %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			preview, err := s.ComputeOpenOrder("USDT", "0", "0.1", "", false, true, false)
			if err != nil {
				t.Errorf("ComputeOpenOrder failed: %v", err)
				return
			}
			// at 10x the cost is 100, at 20x it is 50; anything else is a
			// torn read of the calculator config
			cost := preview.CostLong.String()
			if cost != "100" && cost != "50" {
				t.Errorf("Unexpected cost long under concurrent leverage change: %s", cost)
				return
			}
		}
	}()

	wg.Wait()
}

func TestBookPassThroughs(t *testing.T) {
	s := NewSession("BTCBUSD")
	seedBook(s)

	asks, bids := s.Depth()
	if len(asks) != 2 || len(bids) != 2 {
		t.Fatalf("Expected 2 asks and 2 bids, got: %d asks, %d bids", len(asks), len(bids))
	}

	bestAsk, bestBid, hasAsk, hasBid := s.BestAskBid()
	if !hasAsk || !hasBid {
		t.Fatal("Should have best quotes on both sides")
	}
	if !bestAsk.Equal(decimal.RequireFromString("10000")) {
		t.Errorf("Expected best ask 10000, got: %s", bestAsk)
	}
	if !bestBid.Equal(decimal.RequireFromString("9900")) {
		t.Errorf("Expected best bid 9900, got: %s", bestBid)
	}

	s.UpdateBook(true, []book.Level{
		{Price: decimal.RequireFromString("10000"), Quantity: decimal.Zero},
	})
	asks, _ = s.Depth()
	if len(asks) != 1 {
		t.Fatalf("Expected 1 ask after delete, got: %d", len(asks))
	}

	grouped, _, err := s.GroupPrices(decimal.RequireFromString("1000"))
	if err != nil {
		t.Fatalf("GroupPrices failed: %v", err)
	}
	if len(grouped) != 1 {
		t.Errorf("Expected 1 grouped ask level, got: %d", len(grouped))
	}
}
