package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeRequest struct {
	Symbol string `param:"symbol" validate:"required,max=16"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=5000"`
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analyze/AAPL", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("symbol")
	c.SetParamValues("AAPL")

	var r probeRequest
	require.Nil(t, ReadAndValidateRequest(c, &r))
	assert.Equal(t, "AAPL", r.Symbol)
	assert.Equal(t, 100, r.Limit)
}

func TestReadAndValidateRequestReportsFieldErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analyze/x?limit=9999", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("symbol")
	c.SetParamValues("X")

	var r probeRequest
	errs, ok := ReadAndValidateRequest(c, &r).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "limit must be less than or equal to 5000", errs[0].Message)
	assert.Equal(t, map[string]interface{}{"max": "5000"}, errs[0].Params)
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(context.Background(), &probeRequest{Symbol: "A", Limit: 1}))
	errs, ok := ValidateStruct(context.Background(), &probeRequest{Limit: 1}).([]ValidationError)
	require.True(t, ok)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "symbol is required", errs[0].Message)
}

type overridesRequest struct {
	Trend  []string `json:"trend" validate:"omitempty,dive,oneof=bullish bearish"`
	RSIMax *float64 `json:"rsi_max" validate:"omitempty,lte=100"`
}

func TestValidateStructNamesNestedFields(t *testing.T) {
	over := 120.0
	errs, ok := ValidateStruct(context.Background(), &overridesRequest{Trend: []string{"sideways"}, RSIMax: &over}).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "trend[0]", errs[0].Field)
	assert.Equal(t, "trend[0] must be one of: bullish, bearish", errs[0].Message)
	assert.Equal(t, "rsi_max", errs[1].Field)
}

func TestParseTimeRange(t *testing.T) {
	from, to, err := ParseTimeRange("2024-10-01", "2024-10-10T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, from.Before(to))

	_, _, err = ParseTimeRange("", "")
	require.NoError(t, err)

	_, _, err = ParseTimeRange("yesterday", "")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	_, _, err = ParseTimeRange("2024-10-10", "2024-10-01")
	require.Error(t, err)
}

func TestEventStreamFramesJSON(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/scan", nil), rec)

	s := NewEventStream(c)
	require.NoError(t, s.Send(ErrorBody{Error: "busy"}))
	require.NoError(t, s.Send(map[string]int{"n": 1}))

	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "data: {\"error\":\"busy\"}\n\ndata: {\"n\":1}\n\n", rec.Body.String())
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, TooManyRequestsError("rate limited")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":429`)
	assert.Contains(t, rec.Body.String(), "ERR_TOO_MANY_REQUESTS")
}
