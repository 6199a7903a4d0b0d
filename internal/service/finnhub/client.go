package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"SetupScan/internal/domain/models"
	drepo "SetupScan/internal/domain/repository"
	"SetupScan/internal/service/ratelimit"
	xhttp "SetupScan/pkg/http"
	xutil "SetupScan/pkg/util"
)

const limiterKey = "finnhub"

// Client implements MarketData backed by the Finnhub REST API.
type Client struct {
	apiKey   string
	baseURL  string
	http     *xhttp.Client
	limiter  *ratelimit.Limiter
	capacity float64
	refill   float64
	retries  int
	options  bool
}

// Option configures Client.
type Option func(*Client)

// WithRateLimit throttles outgoing requests with a shared token bucket.
func WithRateLimit(l *ratelimit.Limiter, capacity, refillPerSec float64) Option {
	return func(c *Client) {
		c.limiter = l
		c.capacity = capacity
		c.refill = refillPerSec
	}
}

// WithRetries sets how many times a throttled or failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithOptions enables option chain lookups. Without it OptionChain reports no data.
func WithOptions(enabled bool) Option {
	return func(c *Client) { c.options = enabled }
}

// New creates a Finnhub REST client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		// option chains for large caps run to several megabytes
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithMaxBody(32<<20),
			xhttp.WithUserAgent("setupscan-finnhub"),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candleResponse struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	T []int64   `json:"t"`
	V []float64 `json:"v"`
	S string    `json:"s"`
}

// Candles returns bars for symbol in ascending time order.
func (c *Client) Candles(ctx context.Context, symbol string, res drepo.Resolution, from, to time.Time) ([]models.Candle, error) {
	from, to = xutil.AlignRange(from, to, string(res))
	var cr candleResponse
	err := c.get(ctx, "/stock/candle", map[string][]string{
		"symbol":     {symbol},
		"resolution": {string(res)},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}, &cr)
	if err != nil {
		return nil, c.classify(symbol, err)
	}
	if cr.S != "ok" {
		return nil, models.Unavailable(symbol, fmt.Errorf("candle status %q", cr.S))
	}

	n := len(cr.T)
	if len(cr.C) != n || len(cr.O) != n || len(cr.H) != n || len(cr.L) != n || len(cr.V) != n {
		return nil, models.Unavailable(symbol, errors.New("ragged candle arrays"))
	}
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Candle{
			Bucket: time.Unix(cr.T[i], 0).UTC(),
			Symbol: symbol,
			Open:   cr.O[i],
			High:   cr.H[i],
			Low:    cr.L[i],
			Close:  cr.C[i],
			Volume: cr.V[i],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out, nil
}

type optionContract struct {
	Strike            float64 `json:"strike"`
	Volume            float64 `json:"volume"`
	OpenInterest      float64 `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	Gamma             float64 `json:"gamma"`
}

type optionChainResponse struct {
	Code string `json:"code"`
	Data []struct {
		ExpirationDate string `json:"expirationDate"`
		Options        struct {
			Call []optionContract `json:"CALL"`
			Put  []optionContract `json:"PUT"`
		} `json:"options"`
	} `json:"data"`
}

// OptionChain returns the nearest expiration of the option chain. Finnhub reports
// implied volatility in percent; it is converted to a fraction.
func (c *Client) OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if !c.options {
		return nil, models.Unavailable(symbol, errors.New("option chain lookups disabled"))
	}
	var oc optionChainResponse
	if err := c.get(ctx, "/stock/option-chain", map[string][]string{"symbol": {symbol}}, &oc); err != nil {
		return nil, c.classify(symbol, err)
	}
	if len(oc.Data) == 0 {
		return nil, models.Unavailable(symbol, errors.New("empty option chain"))
	}

	nearest := 0
	for i := range oc.Data {
		if oc.Data[i].ExpirationDate < oc.Data[nearest].ExpirationDate {
			nearest = i
		}
	}
	d := oc.Data[nearest]
	return &models.OptionChain{
		Symbol:     symbol,
		Expiration: d.ExpirationDate,
		Calls:      convertContracts(d.Options.Call),
		Puts:       convertContracts(d.Options.Put),
	}, nil
}

func convertContracts(in []optionContract) []models.OptionContract {
	out := make([]models.OptionContract, 0, len(in))
	for _, o := range in {
		iv := o.ImpliedVolatility
		if iv > 5 {
			iv /= 100
		}
		out = append(out, models.OptionContract{
			Strike:            o.Strike,
			Volume:            o.Volume,
			OpenInterest:      o.OpenInterest,
			ImpliedVolatility: iv,
			Gamma:             o.Gamma,
		})
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt, err)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if c.limiter != nil {
			if werr := c.limiter.Wait(ctx, limiterKey, c.capacity, c.refill); werr != nil {
				return werr
			}
		}
		err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
			QueryParams: query,
		}, dest)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

// backoff grows linearly and honors the provider's Retry-After hint when it is longer.
func backoff(attempt int, err error) time.Duration {
	d := time.Duration(attempt) * 250 * time.Millisecond
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.RetryAfter > d {
		d = se.RetryAfter
	}
	return d
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Throttled() || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// classify maps provider refusals to ErrUnavailable so the scan skips the symbol.
func (c *Client) classify(symbol string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
			return models.Unavailable(symbol, err)
		}
	}
	return fmt.Errorf("finnhub %s: %w", symbol, err)
}

var _ drepo.MarketData = (*Client)(nil)
