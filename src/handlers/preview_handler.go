package handlers

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"preview-engine/src/book"
	"preview-engine/src/models"
	"preview-engine/src/session"
)

type PreviewHandler struct {
	Session          *session.Session
	StartTime        time.Time
	PreviewsComputed int64
	PreviewsRejected int64
	BookWrites       int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewPreviewHandler(sess *session.Session) *PreviewHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &PreviewHandler{
		Session:      sess,
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
}

func malformedJSON(c *fiber.Ctx, err error) error {
	log.Warn().
		Err(err).
		Str("ip", c.IP()).
		Str("path", c.Path()).
		Msg("Invalid request: malformed JSON")
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: "Invalid request: malformed JSON",
	})
}

func (h *PreviewHandler) NewPair(c *fiber.Ctx) error {
	var req models.NewPairRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}
	if req.Symbol == "" {
		return badRequest(c, fmt.Errorf("symbol is required"))
	}

	err := h.Session.NewPair(
		req.Symbol, req.CollateralLongToken, req.CollateralShortToken,
		req.Leverage, req.MaxNotional, req.MinQuantityBase,
		req.MarginRatio, req.TakerFee, req.MakerFee,
		req.BaseTokenPrecision,
	)
	if err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("Invalid pair configuration")
		return badRequest(c, err)
	}

	log.Info().
		Str("symbol", req.Symbol).
		Str("leverage", req.Leverage).
		Str("max_notional", req.MaxNotional).
		Msg("Pair registered")

	return c.Status(fiber.StatusCreated).JSON(models.PairResponse{
		Symbol: req.Symbol,
		Status: "ACTIVE",
	})
}

func (h *PreviewHandler) ChangeActivePair(c *fiber.Ctx) error {
	var req models.ChangeActivePairRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}

	if err := h.Session.ChangeActivePair(req.Symbol); err != nil {
		return badRequest(c, err)
	}

	log.Info().Str("symbol", req.Symbol).Msg("Active pair changed")
	return c.JSON(models.PairResponse{Symbol: req.Symbol, Status: "ACTIVE"})
}

func (h *PreviewHandler) ChangeLeverage(c *fiber.Ctx) error {
	var req models.ChangeLeverageRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}

	if err := h.Session.ChangeLeverage(req.Leverage, req.MaxNotional); err != nil {
		return badRequest(c, err)
	}

	log.Info().
		Str("leverage", req.Leverage).
		Str("max_notional", req.MaxNotional).
		Str("pair", h.Session.ActivePair()).
		Msg("Leverage changed")
	return c.JSON(models.PairResponse{Symbol: h.Session.ActivePair(), Status: "ACTIVE"})
}

func (h *PreviewHandler) UpdateBalance(c *fiber.Ctx) error {
	var req models.UpdateBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}
	if req.Token == "" {
		return badRequest(c, fmt.Errorf("token is required"))
	}

	if err := h.Session.UpdateBalance(req.Token, req.Balance); err != nil {
		return badRequest(c, err)
	}

	log.Info().Str("token", req.Token).Msg("Balance updated")
	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewOrder computes the full order preview. Configuration and sizing
// violations come back as 400s; an unfillable book is a normal 200 with the
// zero-valued preview.
func (h *PreviewHandler) PreviewOrder(c *fiber.Ctx) error {
	var req models.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}

	previewID := uuid.New().String()
	startTime := time.Now()

	preview, err := h.Session.ComputeOpenOrder(
		req.PayToken, req.PayAmount, req.Quantity, req.LimitPrice,
		req.QuantityIsQuote, req.IsBuy, req.QuantityIsPercentage,
	)

	latency := time.Since(startTime)
	h.recordLatency(latency)

	if err != nil {
		atomic.AddInt64(&h.PreviewsRejected, 1)
		log.Warn().
			Err(err).
			Str("preview_id", previewID).
			Str("pay_amount", req.PayAmount).
			Str("quantity", req.Quantity).
			Bool("is_buy", req.IsBuy).
			Str("ip", c.IP()).
			Msg("Preview rejected")
		return badRequest(c, err)
	}

	atomic.AddInt64(&h.PreviewsComputed, 1)

	log.Info().
		Str("preview_id", previewID).
		Str("pair", h.Session.ActivePair()).
		Str("entry_price", preview.EntryPrice.String()).
		Str("open_quantity", preview.OpenQuantity.String()).
		Bool("is_buy", req.IsBuy).
		Int64("latency_us", latency.Microseconds()).
		Msg("Preview computed")

	return c.JSON(models.PreviewResponse{
		PreviewID: previewID,
		Pair:      h.Session.ActivePair(),
		Preview:   preview,
	})
}

func parseLevelPairs(raw [][2]string) ([]book.Level, error) {
	levels := make([]book.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("invalid price %q", pair[0])
		}
		quantity, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q", pair[1])
		}
		levels = append(levels, book.Level{Price: price, Quantity: quantity})
	}
	return levels, nil
}

func (h *PreviewHandler) InitializeBook(c *fiber.Ctx) error {
	var req models.InitializeBookRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}

	asks, err := parseLevelPairs(req.Asks)
	if err != nil {
		return badRequest(c, err)
	}
	bids, err := parseLevelPairs(req.Bids)
	if err != nil {
		return badRequest(c, err)
	}

	h.Session.InitializeBook(asks, bids)
	atomic.AddInt64(&h.BookWrites, 1)

	log.Info().
		Int("asks", len(asks)).
		Int("bids", len(bids)).
		Msg("Book initialized")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PreviewHandler) UpdateBook(c *fiber.Ctx) error {
	var req models.UpdateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedJSON(c, err)
	}
	if req.Side != "ask" && req.Side != "bid" {
		return badRequest(c, fmt.Errorf("side must be \"ask\" or \"bid\""))
	}

	levels, err := parseLevelPairs(req.Levels)
	if err != nil {
		return badRequest(c, err)
	}

	h.Session.UpdateBook(req.Side == "ask", levels)
	atomic.AddInt64(&h.BookWrites, 1)

	return c.SendStatus(fiber.StatusNoContent)
}

func toLevelInfos(levels []book.Level) []models.PriceLevelInfo {
	infos := make([]models.PriceLevelInfo, 0, len(levels))
	for _, lvl := range levels {
		infos = append(infos, models.PriceLevelInfo{
			Price:    lvl.Price.String(),
			Quantity: lvl.Quantity.String(),
		})
	}
	return infos
}

func (h *PreviewHandler) GetDepth(c *fiber.Ctx) error {
	asks, bids := h.Session.Depth()
	return c.JSON(models.DepthResponse{
		Symbol:    h.Session.Ladder().Symbol,
		Timestamp: time.Now().UnixMilli(),
		Asks:      toLevelInfos(asks),
		Bids:      toLevelInfos(bids),
	})
}

func (h *PreviewHandler) GetGroupedDepth(c *fiber.Ctx) error {
	sizeParam := c.Query("size")
	if sizeParam == "" {
		return badRequest(c, fmt.Errorf("size query parameter is required"))
	}
	size, err := decimal.NewFromString(sizeParam)
	if err != nil {
		return badRequest(c, fmt.Errorf("invalid grouping size %q", sizeParam))
	}

	asks, bids, err := h.Session.GroupPrices(size)
	if err != nil {
		return badRequest(c, err)
	}

	return c.JSON(models.DepthResponse{
		Symbol:    h.Session.Ladder().Symbol,
		Timestamp: time.Now().UnixMilli(),
		Asks:      toLevelInfos(asks),
		Bids:      toLevelInfos(bids),
	})
}

func (h *PreviewHandler) GetBestQuote(c *fiber.Ctx) error {
	bestAsk, bestBid, hasAsk, hasBid := h.Session.BestAskBid()
	resp := models.BestQuoteResponse{HasAsk: hasAsk, HasBid: hasBid}
	if hasAsk {
		resp.BestAsk = bestAsk.String()
	}
	if hasBid {
		resp.BestBid = bestBid.String()
	}
	return c.JSON(resp)
}

func (h *PreviewHandler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:           "healthy",
		UptimeSeconds:    int64(time.Since(h.StartTime).Seconds()),
		PreviewsComputed: atomic.LoadInt64(&h.PreviewsComputed),
	})
}

func (h *PreviewHandler) Metrics(c *fiber.Ctx) error {
	p50, p99 := h.latencyPercentiles()
	return c.JSON(models.MetricsResponse{
		PreviewsComputed: atomic.LoadInt64(&h.PreviewsComputed),
		PreviewsRejected: atomic.LoadInt64(&h.PreviewsRejected),
		BookWrites:       atomic.LoadInt64(&h.BookWrites),
		LatencyP50Ms:     p50,
		LatencyP99Ms:     p99,
		UptimeSeconds:    int64(time.Since(h.StartTime).Seconds()),
	})
}

func (h *PreviewHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	// edge case: keep a bounded window by dropping the oldest sample
	if len(h.latencies) >= h.maxLatencies {
		h.latencies = h.latencies[1:]
	}
	h.latencies = append(h.latencies, latency)
}

func (h *PreviewHandler) latencyPercentiles() (p50, p99 float64) {
	h.latenciesMu.RLock()
	samples := make([]time.Duration, len(h.latencies))
	copy(samples, h.latencies)
	h.latenciesMu.RUnlock()

	if len(samples) == 0 {
		return 0, 0
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	at := func(q float64) float64 {
		idx := int(q * float64(len(samples)-1))
		return float64(samples[idx].Microseconds()) / 1000.0
	}
	return at(0.50), at(0.99)
}
