package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SetupScan/internal/domain/models"
	drepo "SetupScan/internal/domain/repository"
	domsvc "SetupScan/internal/domain/service"
	"SetupScan/pkg/cache"
	applogger "SetupScan/pkg/logger"
	"SetupScan/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const lastResultsKey = "scan:last"

// ErrHistoryDisabled is returned by History when no archive is configured.
var ErrHistoryDisabled = errors.New("history archive is not configured")

// ScanService owns the scan lifecycle: guard, pipeline goroutine, status and result views.
type ScanService struct {
	appCtx    context.Context
	base      models.ScanConfig
	status    *ScanStatus
	guard     *ScanGuard
	pipeline  *ScanPipeline
	streamer  *EventStreamer
	analyzer  domsvc.Analyzer
	archive   drepo.Archive
	publisher drepo.Publisher
	cache     cache.Service
	loader    *cache.Loader
	metrics   drepo.Metrics
	log       *applogger.Logger
	probes    *semaphore.Weighted
	probeTTL  time.Duration
	sinkTTL   time.Duration
	now       func() time.Time

	running sync.WaitGroup

	mu       sync.RWMutex
	last     models.ResultSet
	lastDone bool
}

type ServiceOption func(*ScanService)

// WithAppContext sets the context scans run under. It should live as long as the process.
func WithAppContext(ctx context.Context) ServiceOption {
	return func(s *ScanService) { s.appCtx = ctx }
}

func WithArchive(a drepo.Archive) ServiceOption {
	return func(s *ScanService) { s.archive = a }
}

func WithPublisher(p drepo.Publisher) ServiceOption {
	return func(s *ScanService) { s.publisher = p }
}

func WithCache(c cache.Service) ServiceOption {
	return func(s *ScanService) { s.cache = c }
}

func WithMetrics(m drepo.Metrics) ServiceOption {
	return func(s *ScanService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) ServiceOption {
	return func(s *ScanService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPollInterval sets how often subscribers sample the status.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *ScanService) { s.streamer = NewEventStreamer(s.status, d) }
}

// WithProbeTTL sets how long single-symbol analyses stay cached.
func WithProbeTTL(d time.Duration) ServiceOption {
	return func(s *ScanService) { s.probeTTL = d }
}

func NewScanService(pipeline *ScanPipeline, analyzer domsvc.Analyzer, base models.ScanConfig, opts ...ServiceOption) *ScanService {
	status := NewScanStatus()
	s := &ScanService{
		appCtx:   context.Background(),
		base:     base,
		status:   status,
		guard:    NewScanGuard(status),
		pipeline: pipeline,
		streamer: NewEventStreamer(status, 0),
		analyzer: analyzer,
		metrics:  nopMetrics{},
		log:      applogger.NewNop(),
		probeTTL: 5 * time.Minute,
		sinkTTL:  10 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	workers := base.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	s.probes = semaphore.NewWeighted(int64(workers))
	s.loader = cache.NewLoader(s.cache)
	return s
}

// Configure merges overrides into the base configuration. The result is never shared with other scans.
func (s *ScanService) Configure(o models.FilterOverrides) (models.ScanConfig, error) {
	filters, err := models.MergeFilters(s.base.Filters, o)
	if err != nil {
		return models.ScanConfig{}, err
	}
	cfg := s.base
	cfg.Symbols = append([]string(nil), s.base.Symbols...)
	cfg.Filters = filters
	return cfg, nil
}

// Start launches a scan in the background. It fails with a ConfigError for bad overrides
// and with ErrScanInProgress when a scan is already running, leaving the status untouched.
func (s *ScanService) Start(o models.FilterOverrides) error {
	cfg, err := s.Configure(o)
	if err != nil {
		return err
	}
	if !s.guard.TryAcquire() {
		s.metrics.RecordError("scan_rejected")
		return models.ErrScanInProgress
	}
	s.running.Add(1)
	go func() {
		_, _ = s.execute(s.appCtx, cfg)
	}()
	return nil
}

// Scan runs a scan in the calling goroutine under the same guard as Start.
func (s *ScanService) Scan(ctx context.Context, o models.FilterOverrides) (models.ResultSet, error) {
	cfg, err := s.Configure(o)
	if err != nil {
		return nil, err
	}
	if !s.guard.TryAcquire() {
		s.metrics.RecordError("scan_rejected")
		return nil, models.ErrScanInProgress
	}
	s.running.Add(1)
	return s.execute(ctx, cfg)
}

// Wait blocks until every accepted scan has finished its exports, or ctx ends.
func (s *ScanService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream forwards the progress of the current scan to sink.
func (s *ScanService) Stream(ctx context.Context, sink EventSink) error {
	return s.streamer.Stream(ctx, sink)
}

func (s *ScanService) Status() models.ProgressSnapshot {
	return s.status.Get()
}

// LastResults returns the most recently completed result set.
func (s *ScanService) LastResults(ctx context.Context) (models.ResultSet, error) {
	s.mu.RLock()
	rs, ok := s.last.Clone(), s.lastDone
	s.mu.RUnlock()
	if ok {
		if rs == nil {
			rs = models.ResultSet{}
		}
		return rs, nil
	}

	if s.cache != nil {
		var cached models.ResultSet
		if err := s.cache.Get(ctx, lastResultsKey, &cached); err == nil {
			if cached == nil {
				cached = models.ResultSet{}
			}
			return cached, nil
		}
	}
	return nil, models.ErrNoResults
}

// Analyze probes one symbol. Probes share max_workers slots and are cached per symbol;
// concurrent probes of one symbol share a single analysis.
func (s *ScanService) Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, &models.ConfigError{Field: "symbol", Reason: "cannot be empty"}
	}
	if err := s.probes.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire probe slot: %w", err)
	}
	defer s.probes.Release(1)

	start := time.Now()
	rec, hit, err := cache.Load(ctx, s.loader, cache.Key("probe", symbol), s.probeTTL,
		func(ctx context.Context) (models.AnalysisRecord, error) {
			r, err := s.analyzer.Analyze(ctx, symbol)
			if err != nil {
				return models.AnalysisRecord{}, err
			}
			if r == nil {
				return models.AnalysisRecord{}, models.Unavailable(symbol, nil)
			}
			return *r, nil
		})
	s.metrics.RecordLatency("probe", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			s.metrics.RecordSymbol("unavailable")
		} else {
			s.metrics.RecordError("probe")
		}
		return nil, err
	}
	s.log.Debug("probe served", applogger.String("symbol", symbol), applogger.Bool("cached", hit))
	return &rec, nil
}

// History queries the archive.
func (s *ScanService) History(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedResult, error) {
	if s.archive == nil {
		return nil, ErrHistoryDisabled
	}
	q.Symbol = util.NormalizeSymbol(q.Symbol)
	out, err := s.archive.History(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("archive history: %w", err)
	}
	return out, nil
}

// Health pings the configured backing stores.
func (s *ScanService) Health(ctx context.Context) error {
	if s.archive != nil {
		if err := s.archive.Health(ctx); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// execute runs the pipeline for an acquired guard and always releases it.
func (s *ScanService) execute(ctx context.Context, cfg models.ScanConfig) (rs models.ResultSet, err error) {
	defer s.running.Done()
	summary := models.ScanSummary{ScanID: uuid.NewString(), StartedAt: s.now()}
	var file string

	defer func() {
		if p := recover(); p != nil {
			rs, err = nil, models.Fatal(models.StagePanic, fmt.Errorf("%v", p))
		}
		summary.FinishedAt = s.now()
		summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
		summary.File = file
		s.complete(summary, rs, err)
		s.guard.Release()
		s.export(ctx, summary, rs, err)
	}()

	rs, file, err = s.pipeline.run(ctx, cfg, s.status)
	return rs, err
}

// complete records the outcome in the status while the scan still holds the guard.
func (s *ScanService) complete(summary models.ScanSummary, rs models.ResultSet, err error) {
	secs := summary.Duration.Seconds()
	if err != nil {
		s.status.AddError(err.Error())
		s.metrics.RecordScan("failure", secs, 0)
		stage := "scan"
		var fe *models.FatalError
		if errors.As(err, &fe) {
			stage = fe.Stage
		}
		s.metrics.RecordError(stage)
		s.log.Error("scan failed", applogger.String("scan_id", summary.ScanID), applogger.Error(err))
		return
	}

	s.status.SetResults(rs)
	s.mu.Lock()
	s.last, s.lastDone = rs.Clone(), true
	s.mu.Unlock()
	s.metrics.RecordScan("success", secs, len(rs))
	s.log.Info("scan completed",
		applogger.String("scan_id", summary.ScanID),
		applogger.Int("results", len(rs)),
		applogger.Duration("duration", summary.Duration),
	)
}

// export ships a finished scan to the secondary sinks. Failures are logged and counted only.
func (s *ScanService) export(parent context.Context, summary models.ScanSummary, rs models.ResultSet, scanErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.sinkTTL)
	defer cancel()

	if scanErr != nil {
		summary.Error = scanErr.Error()
	} else {
		summary.ResultCount = len(rs)
		if s.cache != nil {
			if err := s.cache.Set(ctx, lastResultsKey, rs, 0); err != nil {
				s.sinkFailed("cache", summary.ScanID, err)
			}
		}
		if s.archive != nil {
			if err := s.archive.StoreScan(ctx, summary, rs); err != nil {
				s.sinkFailed("archive", summary.ScanID, err)
			}
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishScan(ctx, summary, rs); err != nil {
			s.sinkFailed("publish", summary.ScanID, err)
		}
	}
}

func (s *ScanService) sinkFailed(sink, scanID string, err error) {
	s.metrics.RecordError(sink)
	s.log.Warn("scan export failed",
		applogger.String("sink", sink),
		applogger.String("scan_id", scanID),
		applogger.Error(err),
	)
}
