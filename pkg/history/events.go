package history

import (
	"context"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
)

const (
	EventPredictionCompleted = "prediction.completed"
	EventSource              = "risk-service"
)

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// EventRecorder appends to the wrapped recorder and then announces the record.
// Publish failures are logged; the local append is what counts.
type EventRecorder struct {
	next      Recorder
	publisher Publisher
}

func NewEventRecorder(next Recorder, publisher Publisher) *EventRecorder {
	return &EventRecorder{next: next, publisher: publisher}
}

func (e *EventRecorder) Append(ctx context.Context, rec Record) error {
	if err := e.next.Append(ctx, rec); err != nil {
		return err
	}
	if err := e.publisher.PublishEvent(ctx, EventPredictionCompleted, EventSource, rec.ToMap()); err != nil {
		logger.Log.WithError(err).WithField("record_id", rec.ID.String()).Warn("failed to publish history event")
	}
	return nil
}

func (e *EventRecorder) LoadAll(ctx context.Context) ([]Record, error) {
	return e.next.LoadAll(ctx)
}
