package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"preview-engine/src/book"
)

func TestSnapshotRefresh(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"asks":[["10000","1"],["10100","2"]],"bids":[["9900","1"]]}}`))
	}))
	defer server.Close()

	ladder := book.NewLadder("BTCBUSD")
	client := NewSnapshotClient(server.URL, "BTCBUSD")

	if err := client.Refresh(context.Background(), ladder); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if gotPath != "/order-book/v1/books?depth=10&symbol=fBTCBUSD" {
		t.Errorf("Unexpected snapshot request: %s", gotPath)
	}

	asks, bids := ladder.Depth()
	if len(asks) != 2 || len(bids) != 1 {
		t.Fatalf("Expected 2 asks and 1 bid, got: %d asks, %d bids", len(asks), len(bids))
	}
	if !asks[1].Quantity.Equal(decimal.RequireFromString("2")) {
		t.Errorf("Expected second ask quantity 2, got: %s", asks[1].Quantity)
	}
}

func TestSnapshotFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSnapshotClient(server.URL, "BTCBUSD")
	if _, _, err := client.Fetch(context.Background()); err == nil {
		t.Error("Expected error for non-200 response")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"asks":[["oops","1"]]}}`))
	}))
	defer bad.Close()

	client = NewSnapshotClient(bad.URL, "BTCBUSD")
	if _, _, err := client.Fetch(context.Background()); err == nil {
		t.Error("Expected error for unparseable level price")
	}
}

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels([][2]string{{"1.5", "2"}, {"1.6", "0"}})
	if err != nil {
		t.Fatalf("parseLevels failed: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got: %d", len(levels))
	}
	if !levels[0].Price.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected price 1.5, got: %s", levels[0].Price)
	}

	if _, err := parseLevels([][2]string{{"1.5", "x"}}); err == nil {
		t.Error("Expected error for unparseable quantity")
	}
}

func TestStreamApply(t *testing.T) {
	ladder := book.NewLadder("BTCBUSD")
	stream := NewBookStream("ws://unused", "BTCBUSD", ladder)

	err := stream.apply(bookMessage{
		Type: "snapshot",
		Asks: [][2]string{{"10000", "1"}, {"10100", "1"}},
		Bids: [][2]string{{"9900", "1"}},
	})
	if err != nil {
		t.Fatalf("apply snapshot failed: %v", err)
	}

	asks, bids := ladder.Depth()
	if len(asks) != 2 || len(bids) != 1 {
		t.Fatalf("Expected 2 asks and 1 bid, got: %d asks, %d bids", len(asks), len(bids))
	}

	// delta patches one side; zero quantity deletes
	err = stream.apply(bookMessage{
		Type: "delta",
		Asks: [][2]string{{"10000", "0"}, {"10200", "3"}},
	})
	if err != nil {
		t.Fatalf("apply delta failed: %v", err)
	}

	asks, _ = ladder.Depth()
	if len(asks) != 2 {
		t.Fatalf("Expected 2 asks after delta, got: %d", len(asks))
	}
	if !asks[0].Price.Equal(decimal.RequireFromString("10100")) {
		t.Errorf("Expected best ask 10100, got: %s", asks[0].Price)
	}

	if err := stream.apply(bookMessage{Type: "trades"}); err == nil {
		t.Error("Expected error for unknown message type")
	}
	if err := stream.apply(bookMessage{Type: "delta", Bids: [][2]string{{"bad", "1"}}}); err == nil {
		t.Error("Expected error for unparseable delta level")
	}
}
