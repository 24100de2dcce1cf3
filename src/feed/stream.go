package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"preview-engine/src/book"
)

const (
	handshakeTimeout = 15 * time.Second
	writeWait        = 10 * time.Second

	// reconnect backoff doubles per attempt up to the cap
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// bookMessage is one order-book event from the stream. Snapshot messages
// replace the whole book; delta messages patch one side.
type bookMessage struct {
	Type   string      `json:"type"` // "snapshot" or "delta"
	Symbol string      `json:"symbol"`
	Asks   [][2]string `json:"asks,omitempty"`
	Bids   [][2]string `json:"bids,omitempty"`
}

type streamCommand struct {
	Op     string `json:"op"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

// BookStream keeps a ladder current from the upstream websocket feed. It
// owns the connection lifecycle: subscribe, apply updates, resubscribe after
// reconnecting with capped exponential backoff.
type BookStream struct {
	url    string
	ladder *book.Ladder

	mu     sync.Mutex
	symbol string
	conn   *websocket.Conn
	closed bool
}

func NewBookStream(url, symbol string, ladder *book.Ladder) *BookStream {
	return &BookStream{
		url:    url,
		symbol: symbol,
		ladder: ladder,
	}
}

func (s *BookStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("feed: connect %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	symbol := s.symbol
	s.mu.Unlock()

	return s.send(streamCommand{Op: "subscribe", Symbol: symbol})
}

func (s *BookStream) send(cmd streamCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("feed: stream not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("feed: send %s %s: %w", cmd.Op, cmd.Symbol, err)
	}
	return nil
}

// SwitchPair unsubscribes from the current symbol and subscribes to a new
// one. The ladder is cleared so stale levels never price a preview.
func (s *BookStream) SwitchPair(symbol string) error {
	s.mu.Lock()
	current := s.symbol
	s.mu.Unlock()

	if err := s.send(streamCommand{Op: "unsubscribe", Symbol: current}); err != nil {
		return err
	}
	if err := s.send(streamCommand{Op: "subscribe", Symbol: symbol}); err != nil {
		return err
	}

	s.mu.Lock()
	s.symbol = symbol
	s.mu.Unlock()

	s.ladder.Initialize(nil, nil)
	return nil
}

// Run connects and consumes book events until the context is cancelled,
// reconnecting on read failures.
func (s *BookStream) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		if err := s.connect(ctx); err != nil {
			log.Warn().Err(err).Dur("retry_in", delay).Msg("Book stream connect failed")
		} else {
			delay = reconnectDelay
			if err := s.readLoop(ctx); err != nil {
				log.Warn().Err(err).Msg("Book stream disconnected")
			}
		}

		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (s *BookStream) readLoop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var msg bookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed book message")
			continue
		}

		if err := s.apply(msg); err != nil {
			log.Warn().Err(err).Str("type", msg.Type).Msg("Skipping unusable book message")
		}
	}
}

func (s *BookStream) apply(msg bookMessage) error {
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return err
	}
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return err
	}

	switch msg.Type {
	case "snapshot":
		s.ladder.Initialize(asks, bids)
	case "delta":
		if len(asks) > 0 {
			s.ladder.Update(true, asks)
		}
		if len(bids) > 0 {
			s.ladder.Update(false, bids)
		}
	default:
		return fmt.Errorf("feed: unknown message type %q", msg.Type)
	}
	return nil
}

// Close stops Run after the current read returns.
func (s *BookStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
