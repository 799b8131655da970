package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
	"github.com/couchcryptid/storm-risk-predictor/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.AssessmentEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.AssessmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() []domain.AssessmentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AssessmentEvent(nil), m.loaded...)
}

type mockGeocoder struct {
	result domain.GeocodingResult
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return m.result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeEvent(id string, score float64) domain.AssessmentEvent {
	a := domain.NewAssessment(score)
	return domain.AssessmentEvent{
		ID:         id,
		Features:   domain.FeatureVector{Lat: 35.67, Lon: 139.65, WindSpeed: 12, Temperature: 18, LastThreatCount: 3},
		RiskScore:  a.Score,
		RiskLevel:  a.Level,
		AssessedAt: time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
	}
}

func runPipeline(t *testing.T, p *pipeline.Pipeline) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

// --- tests ---

func TestPipeline_Run_PublishesQueuedEvents(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	queue := pipeline.NewQueue(10, 10*time.Millisecond, clockwork.NewRealClock(), metrics)
	ldr := &mockLoader{}
	p := pipeline.New(queue, pipeline.NewTransformer(nil, discardLogger()), ldr, discardLogger(), metrics, 5)

	require.True(t, queue.Enqueue(makeEvent("evt-1", 0.8)))
	require.True(t, queue.Enqueue(makeEvent("evt-2", 0.1)))

	cancel, done := runPipeline(t, p)

	require.Eventually(t, func() bool { return len(ldr.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	loaded := ldr.snapshot()
	assert.Equal(t, "evt-1", loaded[0].ID)
	assert.Equal(t, "evt-2", loaded[1].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	queue := pipeline.NewQueue(10, time.Second, clockwork.NewRealClock(), metrics)
	ldr := &mockLoader{}
	p := pipeline.New(queue, pipeline.NewTransformer(nil, discardLogger()), ldr, discardLogger(), metrics, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_RetriesFailedLoad(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	queue := pipeline.NewQueue(10, 10*time.Millisecond, clockwork.NewRealClock(), metrics)
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(queue, pipeline.NewTransformer(nil, discardLogger()), ldr, discardLogger(), metrics, 5)

	require.True(t, queue.Enqueue(makeEvent("evt-retry", 0.5)))

	cancel, done := runPipeline(t, p)

	require.Eventually(t, func() bool { return len(ldr.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventPublishErrors))
	assert.Equal(t, "evt-retry", ldr.snapshot()[0].ID)
}

func TestPipeline_Run_EnrichesWithGeocoder(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	queue := pipeline.NewQueue(10, 10*time.Millisecond, clockwork.NewRealClock(), metrics)
	ldr := &mockLoader{}
	geo := &mockGeocoder{result: domain.GeocodingResult{FormattedAddress: "Shinjuku, Tokyo, Japan", PlaceName: "Shinjuku", Confidence: 0.9}}
	p := pipeline.New(queue, pipeline.NewTransformer(geo, discardLogger()), ldr, discardLogger(), metrics, 5)

	original := makeEvent("evt-geo", 0.4)
	require.True(t, queue.Enqueue(original))

	cancel, done := runPipeline(t, p)
	require.Eventually(t, func() bool { return len(ldr.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	want := original
	want.FormattedAddress = "Shinjuku, Tokyo, Japan"
	want.PlaceName = "Shinjuku"
	want.GeoConfidence = 0.9
	want.GeoSource = domain.GeoSourceReverse
	if diff := cmp.Diff(want, ldr.snapshot()[0]); diff != "" {
		t.Fatalf("enriched event mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	queue := pipeline.NewQueue(1, time.Second, clockwork.NewRealClock(), metrics)

	assert.True(t, queue.Enqueue(makeEvent("a", 0.1)))
	assert.False(t, queue.Enqueue(makeEvent("b", 0.1)))

	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsEnqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsDropped))
}

func TestQueue_ExtractBatch_StopsAtBatchSize(t *testing.T) {
	queue := pipeline.NewQueue(10, time.Hour, clockwork.NewFakeClock(), observability.NewMetricsForTesting())
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, queue.Enqueue(makeEvent(id, 0.5)))
	}

	batch, err := queue.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].ID)
	assert.Equal(t, "b", batch[1].ID)
	assert.Equal(t, 1, queue.Len())
}

func TestQueue_ExtractBatch_FlushesOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	queue := pipeline.NewQueue(10, 500*time.Millisecond, clock, observability.NewMetricsForTesting())
	require.True(t, queue.Enqueue(makeEvent("only", 0.5)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := make(chan []domain.AssessmentEvent, 1)
	go func() {
		batch, _ := queue.ExtractBatch(ctx, 10)
		result <- batch
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(500 * time.Millisecond)

	select {
	case batch := <-result:
		require.Len(t, batch, 1)
		assert.Equal(t, "only", batch[0].ID)
	case <-ctx.Done():
		t.Fatal("batch was not flushed")
	}
}

func TestQueue_ExtractBatch_ContextCancelledWhileEmpty(t *testing.T) {
	queue := pipeline.NewQueue(10, time.Second, clockwork.NewFakeClock(), observability.NewMetricsForTesting())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := queue.ExtractBatch(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
}
