package usecase

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

var errScanCancelled = errors.New("scan cancelled")

// ScanPipeline analyzes a universe of symbols one by one, then filters, ranks and persists the survivors.
type ScanPipeline struct {
	analyzer      domsvc.Analyzer
	writer        drepo.ResultWriter
	metrics       drepo.Metrics
	log           *applogger.Logger
	requestDelay  time.Duration
	symbolTimeout time.Duration
}

type PipelineOption func(*ScanPipeline)

// WithRequestDelay sets the pause between two analysis calls.
func WithRequestDelay(d time.Duration) PipelineOption {
	return func(p *ScanPipeline) { p.requestDelay = d }
}

// WithSymbolTimeout bounds each analysis call. Zero disables the deadline.
func WithSymbolTimeout(d time.Duration) PipelineOption {
	return func(p *ScanPipeline) { p.symbolTimeout = d }
}

func WithPipelineMetrics(m drepo.Metrics) PipelineOption {
	return func(p *ScanPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *ScanPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewScanPipeline(analyzer domsvc.Analyzer, writer drepo.ResultWriter, opts ...PipelineOption) *ScanPipeline {
	p := &ScanPipeline{
		analyzer:      analyzer,
		writer:        writer,
		metrics:       nopMetrics{},
		log:           applogger.NewNop(),
		requestDelay:  100 * time.Millisecond,
		symbolTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one scan and reports progress to sink.
func (p *ScanPipeline) Run(ctx context.Context, cfg models.ScanConfig, sink ProgressSink) (models.ResultSet, error) {
	rs, _, err := p.run(ctx, cfg, sink)
	return rs, err
}

func (p *ScanPipeline) run(ctx context.Context, cfg models.ScanConfig, sink ProgressSink) (models.ResultSet, string, error) {
	symbols, err := ResolveSymbols(cfg)
	if err != nil {
		return nil, "", err
	}
	n := len(symbols)
	p.log.Info("scan started", applogger.Int("symbols", n), applogger.String("output_dir", cfg.OutputDir))

	acc := make(models.ResultSet, 0, n)
	for i, sym := range symbols {
		if ctx.Err() != nil {
			return nil, "", cancelled(ctx)
		}
		sink.Update(100*(i+1)/n, fmt.Sprintf("Processing %s... (%d/%d)", sym, i+1, n), sym)

		rec, err := p.analyze(ctx, sym)
		switch {
		case ctx.Err() != nil:
			return nil, "", cancelled(ctx)
		case err != nil:
			p.skip(sym, err)
		case rec == nil:
			p.skip(sym, models.Unavailable(sym, nil))
		case Passes(*rec, cfg.Filters):
			acc = append(acc, *rec)
			p.metrics.RecordSymbol("passed")
		default:
			p.metrics.RecordSymbol("filtered")
		}

		if i < n-1 {
			if err := sleepCtx(ctx, p.requestDelay); err != nil {
				return nil, "", cancelled(ctx)
			}
		}
	}

	ranked := Rank(FilterRecords(acc, cfg.Filters))

	path, err := p.writer.Write(ctx, cfg.OutputDir, ranked)
	if err != nil {
		return nil, "", models.Fatal(models.StagePersist, err)
	}
	p.log.Info("scan results saved", applogger.String("file", path), applogger.Int("count", len(ranked)))

	sink.Update(100, fmt.Sprintf("Scan complete. Found %d setups after filtering.", len(ranked)), "")
	return ranked, path, nil
}

// analyze runs the collaborator for one symbol. A panic becomes that symbol's error.
func (p *ScanPipeline) analyze(ctx context.Context, sym string) (rec *models.AnalysisRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("analyze %s: panic: %v", sym, r)
		}
	}()
	if p.symbolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.symbolTimeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { p.metrics.RecordLatency("analyze", time.Since(start).Seconds()) }()
	return p.analyzer.Analyze(ctx, sym)
}

func (p *ScanPipeline) skip(sym string, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, models.ErrUnavailable):
		outcome = "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	}
	p.metrics.RecordSymbol(outcome)
	p.log.Warn("symbol skipped",
		applogger.String("symbol", sym),
		applogger.String("outcome", outcome),
		applogger.Error(err),
	)
}

func cancelled(ctx context.Context) error {
	return models.Fatal(models.StageCancel, fmt.Errorf("%w: %v", errScanCancelled, ctx.Err()))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordScan(string, float64, int) {}
func (nopMetrics) RecordSymbol(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
