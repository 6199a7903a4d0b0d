package models

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// OptionContract is a single strike of an option chain side.
type OptionContract struct {
	Strike            float64
	Volume            float64
	OpenInterest      float64
	ImpliedVolatility float64
	Gamma             float64
}

// OptionChain is the nearest-expiration chain of a symbol.
type OptionChain struct {
	Symbol     string
	Expiration string
	Calls      []OptionContract
	Puts       []OptionContract
}
