package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
)

// BatchExtractor reads up to batchSize assessment events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.AssessmentEvent, error)
}

// Transformer enriches an assessment event before it is published.
type Transformer interface {
	Transform(ctx context.Context, event domain.AssessmentEvent) (domain.AssessmentEvent, error)
}

// BatchLoader writes multiple assessment events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.AssessmentEvent) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-enrich-publish loop for assessment events.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("event pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			p.logger.Info("event pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// processBatch runs one extract-enrich-publish cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	start := time.Now()
	p.metrics.BatchSize.Observe(float64(len(batch)))

	enriched := make([]domain.AssessmentEvent, 0, len(batch))
	for _, event := range batch {
		out, err := p.transformer.Transform(ctx, event)
		if err != nil {
			p.logger.Warn("transform failed, skipping event", "error", err, "event_id", event.ID)
			continue
		}
		enriched = append(enriched, out)
	}
	if len(enriched) == 0 {
		return true
	}

	// The queue has no redelivery, so a failed batch is retried until it
	// lands or the pipeline stops.
	for {
		err := p.loader.LoadBatch(ctx, enriched)
		if err == nil {
			break
		}
		p.metrics.EventPublishErrors.Inc()
		p.logger.Error("load batch failed", "error", err, "batch_size", len(enriched))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}

	p.metrics.EventsPublished.Add(float64(len(enriched)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	*backoff = initialBackoff
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
