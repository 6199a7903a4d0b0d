package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"SetupScan/internal/domain/models"
	"SetupScan/internal/service/ratelimit"
	"SetupScan/internal/usecase"
	xhttp "SetupScan/pkg/http"
	xlogger "SetupScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

const invalidFilters = "Invalid filters format"

// ScanHandler serves the scan stream and the result, probe and history views.
type ScanHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ScanService
	rl     *ratelimit.Limiter
	rate   ProbeRate
}

// ProbeRate is the token bucket applied per client to /api/analyze.
type ProbeRate struct {
	Capacity     float64
	RefillPerSec float64
}

func NewScanHandler(logger *xlogger.Logger, svc *usecase.ScanService, rl *ratelimit.Limiter, rate ProbeRate) *ScanHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	return &ScanHandler{logger: logger, svc: svc, rl: rl, rate: rate}
}

func (h *ScanHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/scan", h.Scan)
	g.GET("/status", h.Status)
	g.GET("/results", h.Results)
	g.GET("/analyze/:symbol", h.Analyze)
	g.GET("/history", h.History)
}

// parseOverrides decodes the filters query parameter. An empty value means no overrides.
func parseOverrides(raw string) (models.FilterOverrides, error) {
	var o models.FilterOverrides
	if strings.TrimSpace(raw) == "" {
		return o, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&o); err != nil {
		return o, &models.ConfigError{Field: "filters", Reason: invalidFilters}
	}
	return o, nil
}

// overridesError maps a filters problem to the message returned to the client.
func overridesError(err error) string {
	var ce *models.ConfigError
	if errors.As(err, &ce) && ce.Reason == invalidFilters {
		return invalidFilters
	}
	return err.Error()
}

func validationMessage(verr interface{}) string {
	if errs, ok := verr.([]xhttp.ValidationError); ok && len(errs) > 0 {
		return errs[0].Message
	}
	return invalidFilters
}

// Scan starts a scan and streams its progress as Server-Sent Events.
func (h *ScanHandler) Scan(c echo.Context) error {
	ctx := c.Request().Context()
	o, err := parseOverrides(c.QueryParam("filters"))
	if err != nil {
		return xhttp.ErrorJSON(c, http.StatusBadRequest, overridesError(err))
	}
	if verr := xhttp.ValidateStruct(ctx, &o); verr != nil {
		return xhttp.ErrorJSON(c, http.StatusBadRequest, validationMessage(verr))
	}

	startErr := h.svc.Start(o)
	if startErr != nil && !errors.Is(startErr, models.ErrScanInProgress) {
		h.logger.Warn("scan rejected", xlogger.Error(startErr))
		return xhttp.ErrorJSON(c, http.StatusBadRequest, startErr.Error())
	}

	sink := xhttp.NewEventStream(c)

	if startErr != nil {
		h.logger.Info("scan already running", xlogger.String("remote", c.RealIP()))
		_ = sink.Send(xhttp.ErrorBody{Error: startErr.Error()})
		return nil
	}

	start := time.Now()
	if err := h.svc.Stream(ctx, sink); err != nil {
		h.logger.Debug("scan subscriber left", xlogger.Error(err), xlogger.Duration("after", time.Since(start)))
	}
	return nil
}

func (h *ScanHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}

type resultsBody struct {
	Success bool             `json:"success"`
	Results models.ResultSet `json:"results"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Results returns the last completed result set, optionally narrowed by setup or entry signal.
func (h *ScanHandler) Results(c echo.Context) error {
	req := &models.ResultsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rs, err := h.svc.LastResults(c.Request().Context())
	if err != nil {
		if !errors.Is(err, models.ErrNoResults) {
			h.logger.Error("results lookup error", xlogger.Error(err))
		}
		return c.JSON(http.StatusOK, messageBody{Success: false, Message: models.ErrNoResults.Error()})
	}

	if req.Setup != "" {
		rs = rs.BySetup(models.TrendLabel(req.Setup))
	}
	if req.Entry {
		rs = rs.WithEntrySignal()
	}
	if rs == nil {
		rs = models.ResultSet{}
	}
	return c.JSON(http.StatusOK, resultsBody{Success: true, Results: rs})
}

type probeBody struct {
	Success bool                   `json:"success"`
	Result  *models.AnalysisRecord `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Analyze probes a single symbol outside of any scan.
func (h *ScanHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return c.JSON(http.StatusBadRequest, probeBody{Error: validationMessage(verr)})
	}

	if !h.rl.Allow(c.RealIP()+":analyze", h.rate.Capacity, h.rate.RefillPerSec) {
		h.logger.Warn("analyze rate_limited", xlogger.String("remote", c.RealIP()))
		return c.JSON(http.StatusTooManyRequests, probeBody{Error: "rate limited"})
	}

	rec, err := h.svc.Analyze(c.Request().Context(), req.Symbol)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, probeBody{Success: true, Result: rec})
	case errors.Is(err, models.ErrUnavailable):
		return c.JSON(http.StatusNotFound, probeBody{Error: err.Error()})
	case models.IsConfigError(err):
		return c.JSON(http.StatusBadRequest, probeBody{Error: err.Error()})
	default:
		h.logger.Error("analyze error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, probeBody{Error: err.Error()})
	}
}

// History lists archived results.
func (h *ScanHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := xhttp.ParseTimeRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	q := models.HistoryQuery{Symbol: req.Symbol, Limit: req.Limit, From: from, To: to}

	rows, err := h.svc.History(c.Request().Context(), q)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
		}
		h.logger.Error("history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ScanHandler) Health(c echo.Context) error {
	if err := h.svc.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
