package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SetupScan/internal/domain/models"
	drepo "SetupScan/internal/domain/repository"
	domsvc "SetupScan/internal/domain/service"
	applogger "SetupScan/pkg/logger"
)

// Engine analyzes a symbol from daily candles and, optionally, its option chain.
type Engine struct {
	data       drepo.MarketData
	resolution drepo.Resolution
	lookback   time.Duration
	minBars    int
	options    bool
	log        *applogger.Logger
	now        func() time.Time
}

// Option configures Engine.
type Option func(*Engine)

// WithResolution sets the candle resolution.
func WithResolution(r drepo.Resolution) Option {
	return func(e *Engine) { e.resolution = r }
}

// WithLookback sets how far back candles are requested.
func WithLookback(d time.Duration) Option {
	return func(e *Engine) { e.lookback = d }
}

// WithMinBars sets the minimum number of candles required for an analysis.
func WithMinBars(n int) Option {
	return func(e *Engine) { e.minBars = n }
}

// WithOptionChain enables option chain lookups.
func WithOptionChain(enabled bool) Option {
	return func(e *Engine) { e.options = enabled }
}

// WithLogger sets the engine logger.
func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an analysis engine over data.
func NewEngine(data drepo.MarketData, opts ...Option) *Engine {
	e := &Engine{
		data:       data,
		resolution: drepo.Res1d,
		lookback:   120 * 24 * time.Hour,
		minBars:    55,
		log:        applogger.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze fetches market data for symbol and evaluates it.
func (e *Engine) Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	now := e.now()
	candles, err := e.data.Candles(ctx, symbol, e.resolution, now.Add(-e.lookback), now)
	if err != nil {
		return nil, fmt.Errorf("candles: %w", err)
	}
	if len(candles) < e.minBars {
		return nil, models.Unavailable(symbol, fmt.Errorf("%d bars, need %d", len(candles), e.minBars))
	}

	var chain *models.OptionChain
	if e.options {
		chain, err = e.data.OptionChain(ctx, symbol)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, models.ErrUnavailable) {
				e.log.Warn("option chain lookup failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
			chain = nil
		}
	}

	rec := Evaluate(symbol, candles, chain, now)
	return &rec, nil
}

// Evaluate runs the full analysis over candles in ascending time order.
// chain may be nil.
func Evaluate(symbol string, candles []models.Candle, chain *models.OptionChain, now time.Time) models.AnalysisRecord {
	s := newSeries(candles)
	opts := newOptionStats(chain, s.price())
	mc := newMarketContext(s, opts)
	kl := mapKeyLevels(s, chain)
	setup := determineSetup(mc, kl)
	entry := entrySignal(s, mc, kl, setup.Label)
	exit := exitSignal(s, mc, kl, setup.Label)
	risk := planRisk(mc, kl, setup.Label, setup.Confidence)

	return models.AnalysisRecord{
		Symbol:        symbol,
		Timestamp:     now.UTC(),
		Setup:         setup.Label,
		Weak:          setup.Weak,
		Confidence:    setup.Confidence,
		Reasons:       setup.Reasons,
		EntrySignal:   entry.Active,
		EntryStrength: entry.Strength,
		EntryReasons:  entry.Reasons,
		ExitSignal:    exit.Active,
		ExitStrength:  exit.Strength,
		ExitReasons:   exit.Reasons,
		PositionSize:  risk.PositionSize,
		StopLoss:      risk.StopLoss,
		RiskReward:    risk.RiskReward,
		TargetPrice:   risk.TargetPrice,
		CurrentPrice:  mc.Price,
		MarketContext: mc.MarketContext,
		KeyLevels:     kl,
	}
}

var _ domsvc.Analyzer = (*Engine)(nil)
