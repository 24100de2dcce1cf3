// Package feed drives the price ladder from upstream market data. It is the
// ladder's single writer; the preview request path only reads.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"preview-engine/src/book"
)

const defaultSnapshotDepth = 10

type snapshotResponse struct {
	Data struct {
		Asks [][2]string `json:"asks"`
		Bids [][2]string `json:"bids"`
	} `json:"data"`
}

// SnapshotClient fetches full order-book snapshots over REST.
type SnapshotClient struct {
	baseURL string
	symbol  string
	depth   int
	client  *http.Client
}

func NewSnapshotClient(baseURL, symbol string) *SnapshotClient {
	return &SnapshotClient{
		baseURL: baseURL,
		symbol:  symbol,
		depth:   defaultSnapshotDepth,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SnapshotClient) SwitchSymbol(symbol string) {
	c.symbol = symbol
}

func parseLevels(raw [][2]string) ([]book.Level, error) {
	levels := make([]book.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("feed: invalid level price %q: %w", pair[0], err)
		}
		quantity, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("feed: invalid level quantity %q: %w", pair[1], err)
		}
		levels = append(levels, book.Level{Price: price, Quantity: quantity})
	}
	return levels, nil
}

// Fetch retrieves the current snapshot for the client's symbol. Futures
// books are addressed upstream with an "f" symbol prefix.
func (c *SnapshotClient) Fetch(ctx context.Context) (asks, bids []book.Level, err error) {
	url := fmt.Sprintf("%s/order-book/v1/books?depth=%d&symbol=f%s", c.baseURL, c.depth, c.symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("feed: build snapshot request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("feed: fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("feed: snapshot request returned status %d", resp.StatusCode)
	}

	var payload snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("feed: decode snapshot: %w", err)
	}

	if asks, err = parseLevels(payload.Data.Asks); err != nil {
		return nil, nil, err
	}
	if bids, err = parseLevels(payload.Data.Bids); err != nil {
		return nil, nil, err
	}
	return asks, bids, nil
}

// Refresh fetches a snapshot and replaces the ladder's contents with it.
func (c *SnapshotClient) Refresh(ctx context.Context, ladder *book.Ladder) error {
	asks, bids, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	ladder.Initialize(asks, bids)
	return nil
}
