package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Queue is a bounded in-memory buffer between the predict path and the
// event pipeline. It implements predictor.EventSink and BatchExtractor.
type Queue struct {
	events        chan domain.AssessmentEvent
	flushInterval time.Duration
	clock         clockwork.Clock
	metrics       *observability.Metrics
}

// NewQueue creates a queue holding at most size events.
func NewQueue(size int, flushInterval time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Queue {
	return &Queue{
		events:        make(chan domain.AssessmentEvent, size),
		flushInterval: flushInterval,
		clock:         clock,
		metrics:       metrics,
	}
}

// Enqueue adds an event without blocking. It returns false and counts a
// drop when the queue is full.
func (q *Queue) Enqueue(event domain.AssessmentEvent) bool {
	select {
	case q.events <- event:
		q.metrics.EventsEnqueued.Inc()
		return true
	default:
		q.metrics.EventsDropped.Inc()
		return false
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.events) }

// ExtractBatch blocks until at least one event is available, then collects
// more until batchSize is reached or the flush interval elapses.
func (q *Queue) ExtractBatch(ctx context.Context, batchSize int) ([]domain.AssessmentEvent, error) {
	var batch []domain.AssessmentEvent

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event := <-q.events:
		batch = append(batch, event)
	}

	timer := q.clock.NewTimer(q.flushInterval)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case event := <-q.events:
			batch = append(batch, event)
		case <-timer.Chan():
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}
