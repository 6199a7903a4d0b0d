package repository

import (
	"context"
	"time"

	"SetupScan/internal/domain/models"
)

// Resolution is a candle bucket width understood by the market data provider.
type Resolution string

const (
	Res1m  Resolution = "1"
	Res5m  Resolution = "5"
	Res15m Resolution = "15"
	Res30m Resolution = "30"
	Res1h  Resolution = "60"
	Res1d  Resolution = "D"
	Res1w  Resolution = "W"
)

// IsValidResolution returns true if r is a supported resolution.
func IsValidResolution(r Resolution) bool {
	switch r {
	case Res1m, Res5m, Res15m, Res30m, Res1h, Res1d, Res1w:
		return true
	default:
		return false
	}
}

// NormalizeResolution converts raw string to a valid resolution, defaulting to daily bars.
func NormalizeResolution(s string) Resolution {
	r := Resolution(s)
	if IsValidResolution(r) {
		return r
	}
	return Res1d
}

// MarketData provides read-only access to candles and option chains.
type MarketData interface {
	Candles(ctx context.Context, symbol string, res Resolution, from, to time.Time) ([]models.Candle, error)
	OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)
}
