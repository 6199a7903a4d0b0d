package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SetupScan/internal/domain/models"
	domsvc "SetupScan/internal/domain/service"
	"SetupScan/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchive struct{ mock.Mock }

func (m *mockArchive) Init(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockArchive) StoreScan(ctx context.Context, s models.ScanSummary, rs models.ResultSet) error {
	return m.Called(ctx, s, rs).Error(0)
}

func (m *mockArchive) History(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedResult, error) {
	args := m.Called(ctx, q)
	out, _ := args.Get(0).([]models.ArchivedResult)
	return out, args.Error(1)
}

func (m *mockArchive) Health(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockArchive) Close() error { return m.Called().Error(0) }

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishScan(ctx context.Context, s models.ScanSummary, rs models.ResultSet) error {
	return m.Called(ctx, s, rs).Error(0)
}

func (m *mockPublisher) Close() error { return m.Called().Error(0) }

type recordingSink struct {
	mu     sync.Mutex
	events []interface{}
	failAt int
}

func (s *recordingSink) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.events) == s.failAt {
		return errors.New("client gone")
	}
	s.events = append(s.events, v)
	return nil
}

func (s *recordingSink) snapshot() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.events...)
}

func newService(t *testing.T, a domsvc.Analyzer, w *memWriter, opts ...ServiceOption) *ScanService {
	t.Helper()
	p := NewScanPipeline(a, w, WithRequestDelay(time.Millisecond))
	base := scanConfig("AAA", "BBB")
	base.Filters.Trends = []models.TrendLabel{models.Bullish}
	opts = append([]ServiceOption{WithPollInterval(2 * time.Millisecond)}, opts...)
	return NewScanService(p, a, base, opts...)
}

func assertNoConsecutiveDuplicates(t *testing.T, events []interface{}) {
	t.Helper()
	var prev *models.ProgressEvent
	for i, ev := range events[:len(events)-1] {
		pe, ok := ev.(models.ProgressEvent)
		require.True(t, ok, "event %d is not a progress event", i)
		if prev != nil {
			assert.NotEqual(t, *prev, pe, "duplicate at %d", i)
			assert.GreaterOrEqual(t, pe.Progress, prev.Progress, "progress went backwards at %d", i)
		}
		prev = &pe
	}
}

func TestScanServiceStreamsSingleSetup(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, fixedAnalyzer(map[string]models.AnalysisRecord{
		"AAA": record("AAA", 80, models.Bullish),
	}), w)

	require.NoError(t, svc.Start(models.FilterOverrides{}))
	sink := &recordingSink{}
	require.NoError(t, svc.Stream(context.Background(), sink))

	events := sink.snapshot()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, models.ProgressEvent{Progress: 0, Message: "Starting scan..."}, events[0])
	assertNoConsecutiveDuplicates(t, events)

	final, ok := events[len(events)-1].(models.ResultEvent)
	require.True(t, ok)
	assert.True(t, final.Success)
	require.Len(t, final.Results, 1)
	assert.Equal(t, "AAA", final.Results[0].Symbol)

	rs, err := svc.LastResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, symbolsOf(rs))
	assert.False(t, svc.Status().IsScanning)
}

func TestScanServiceUnreachableConfidenceIsEmptySuccess(t *testing.T) {
	svc := newService(t, fixedAnalyzer(map[string]models.AnalysisRecord{
		"AAA": record("AAA", 100, models.Bullish),
	}), &memWriter{})

	minConf := 101.0
	require.NoError(t, svc.Start(models.FilterOverrides{MinConfidence: &minConf}))
	sink := &recordingSink{}
	require.NoError(t, svc.Stream(context.Background(), sink))

	events := sink.snapshot()
	final, ok := events[len(events)-1].(models.ResultEvent)
	require.True(t, ok, "empty result set is a success, got %#v", events[len(events)-1])
	assert.True(t, final.Success)
	assert.NotNil(t, final.Results)
	assert.Empty(t, final.Results)
}

func TestScanServiceRejectsConcurrentScanWithoutReset(t *testing.T) {
	release := make(chan struct{})
	a := domsvc.AnalyzerFunc(func(ctx context.Context, sym string) (*models.AnalysisRecord, error) {
		<-release
		return nil, models.Unavailable(sym, nil)
	})
	m := newCountingMetrics()
	svc := newService(t, a, &memWriter{}, WithMetrics(m))

	require.NoError(t, svc.Start(models.FilterOverrides{}))
	require.Eventually(t, func() bool { return svc.Status().CurrentSymbol != nil }, time.Second, time.Millisecond)
	before := svc.Status()

	err := svc.Start(models.FilterOverrides{})
	assert.ErrorIs(t, err, models.ErrScanInProgress)
	assert.Equal(t, before, svc.Status())
	assert.Equal(t, 1, m.errors["scan_rejected"])

	close(release)
	require.NoError(t, svc.Stream(context.Background(), &recordingSink{}))
}

func TestScanServiceBadOverridesDoNotAcquire(t *testing.T) {
	svc := newService(t, fixedAnalyzer(nil), &memWriter{})

	lo, hi := 80.0, 20.0
	err := svc.Start(models.FilterOverrides{RSIMin: &lo, RSIMax: &hi})
	assert.True(t, models.IsConfigError(err))
	assert.False(t, svc.Status().IsScanning)
	assert.Equal(t, "Initializing...", svc.Status().Message)
}

func TestScanServicePersistFailureEndsWithError(t *testing.T) {
	pub := &mockPublisher{}
	published := make(chan struct{})
	pub.On("PublishScan", mock.Anything, mock.MatchedBy(func(s models.ScanSummary) bool {
		return s.Error != ""
	}), models.ResultSet(nil)).Return(nil).Run(func(mock.Arguments) { close(published) }).Once()

	svc := newService(t, fixedAnalyzer(nil), &memWriter{err: errors.New("read-only file system")}, WithPublisher(pub))

	require.NoError(t, svc.Start(models.FilterOverrides{}))
	sink := &recordingSink{}
	require.NoError(t, svc.Stream(context.Background(), sink))

	events := sink.snapshot()
	final, ok := events[len(events)-1].(models.ErrorEvent)
	require.True(t, ok)
	assert.Contains(t, final.Error, "read-only file system")

	status := svc.Status()
	assert.False(t, status.IsScanning)
	require.NotEmpty(t, status.Errors)
	assert.NotEmpty(t, status.Errors[0])
	assert.Nil(t, status.Results)

	_, err := svc.LastResults(context.Background())
	assert.ErrorIs(t, err, models.ErrNoResults)

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("failure summary not published")
	}
	pub.AssertExpectations(t)
}

func TestScanServiceExportsCompletedScan(t *testing.T) {
	arc := &mockArchive{}
	pub := &mockPublisher{}
	done := make(chan struct{})
	arc.On("StoreScan", mock.Anything, mock.AnythingOfType("models.ScanSummary"), mock.Anything).Return(errors.New("archive down")).Once()
	pub.On("PublishScan", mock.Anything, mock.MatchedBy(func(s models.ScanSummary) bool {
		return s.ResultCount == 1 && s.ScanID != "" && s.File != ""
	}), mock.Anything).Return(nil).Run(func(mock.Arguments) { close(done) }).Once()

	m := newCountingMetrics()
	svc := newService(t, fixedAnalyzer(map[string]models.AnalysisRecord{
		"AAA": record("AAA", 80, models.Bullish),
	}), &memWriter{}, WithArchive(arc), WithPublisher(pub), WithMetrics(m))

	rs, err := svc.Scan(context.Background(), models.FilterOverrides{})
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher not called")
	}
	arc.AssertExpectations(t)
	pub.AssertExpectations(t)
	assert.Equal(t, 1, m.errors["archive"], "archive failure is counted, not fatal")
	assert.Equal(t, 1, m.scans["success"])
}

func TestScanServiceSubscriberLeavingDoesNotStopScan(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, fixedAnalyzer(map[string]models.AnalysisRecord{
		"AAA": record("AAA", 80, models.Bullish),
	}), w)

	require.NoError(t, svc.Start(models.FilterOverrides{}))
	err := svc.Stream(context.Background(), &recordingSink{failAt: 1})
	assert.Error(t, err)

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := svc.LastResults(context.Background())
		return err == nil
	}, time.Second, time.Millisecond)
}

type panicWriter struct{}

func (panicWriter) Write(context.Context, string, models.ResultSet) (string, error) {
	panic("nil map")
}

func TestScanServicePanicIsRecorded(t *testing.T) {
	a := fixedAnalyzer(map[string]models.AnalysisRecord{"AAA": record("AAA", 80, models.Bullish)})
	p := NewScanPipeline(a, panicWriter{}, WithRequestDelay(0))
	svc := NewScanService(p, a, scanConfig("AAA"), WithPollInterval(2*time.Millisecond))

	_, err := svc.Scan(context.Background(), models.FilterOverrides{})
	var fe *models.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.StagePanic, fe.Stage)

	status := svc.Status()
	assert.False(t, status.IsScanning)
	require.Len(t, status.Errors, 1)
	assert.Contains(t, status.Errors[0], "nil map")
}

func TestScanServiceLastResultsFromCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	require.NoError(t, mc.Set(context.Background(), "scan:last", models.ResultSet{record("ZZZ", 70, models.Bearish)}, 0))

	svc := newService(t, fixedAnalyzer(nil), &memWriter{}, WithCache(mc))
	rs, err := svc.LastResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZ"}, symbolsOf(rs))
}

func TestScanServiceAnalyzeCachesProbe(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()

	calls := 0
	a := domsvc.AnalyzerFunc(func(_ context.Context, sym string) (*models.AnalysisRecord, error) {
		calls++
		if sym != "AAPL" {
			return nil, models.Unavailable(sym, nil)
		}
		r := record(sym, 75, models.Bullish)
		return &r, nil
	})
	svc := newService(t, a, &memWriter{}, WithCache(mc))

	rec, err := svc.Analyze(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rec.Symbol)

	_, err = svc.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = svc.Analyze(context.Background(), "NOPE")
	assert.ErrorIs(t, err, models.ErrUnavailable)

	_, err = svc.Analyze(context.Background(), "  ")
	assert.True(t, models.IsConfigError(err))
}

func TestScanServiceHistory(t *testing.T) {
	svc := newService(t, fixedAnalyzer(nil), &memWriter{})
	_, err := svc.History(context.Background(), models.HistoryQuery{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	arc := &mockArchive{}
	want := []models.ArchivedResult{{ScanID: "s1", Rank: 1}}
	arc.On("History", mock.Anything, models.HistoryQuery{Symbol: "AAPL", Limit: 10}).Return(want, nil)
	arc.On("Health", mock.Anything).Return(nil)

	svc = newService(t, fixedAnalyzer(nil), &memWriter{}, WithArchive(arc))
	got, err := svc.History(context.Background(), models.HistoryQuery{Symbol: "aapl", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, svc.Health(context.Background()))
	arc.AssertExpectations(t)
}

func TestScanServiceWaitCoversExports(t *testing.T) {
	appCtx, cancel := context.WithCancel(context.Background())
	a := domsvc.AnalyzerFunc(func(ctx context.Context, _ string) (*models.AnalysisRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	published := make(chan struct{})
	pub := &mockPublisher{}
	pub.On("PublishScan", mock.Anything, mock.MatchedBy(func(s models.ScanSummary) bool {
		return s.Error != ""
	}), mock.Anything).Return(nil).Run(func(mock.Arguments) {
		time.Sleep(20 * time.Millisecond)
		close(published)
	}).Once()
	svc := newService(t, a, &memWriter{}, WithAppContext(appCtx), WithPublisher(pub))

	require.NoError(t, svc.Start(models.FilterOverrides{}))
	require.Eventually(t, func() bool { return svc.Status().CurrentSymbol != nil }, time.Second, time.Millisecond)
	cancel()

	require.NoError(t, svc.Wait(context.Background()))
	select {
	case <-published:
	default:
		t.Fatal("Wait returned before the failure summary was published")
	}
	pub.AssertExpectations(t)
}

func TestScanServiceWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	a := domsvc.AnalyzerFunc(func(context.Context, string) (*models.AnalysisRecord, error) {
		<-release
		return nil, models.Unavailable("AAA", nil)
	})
	svc := newService(t, a, &memWriter{})
	require.NoError(t, svc.Start(models.FilterOverrides{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, svc.Wait(context.Background()))
}
