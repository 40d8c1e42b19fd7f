package events

import (
	"context"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// ScalingEventStore persists the outcome of applied or failed scaling actions
type ScalingEventStore interface {
	Insert(ctx context.Context, event *models.ScalingEvent) error
}

// EventLogger writes every bus event to the structured log and persists
// scaling outcomes when a store is configured.
type EventLogger struct {
	store     ScalingEventStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewEventLogger(store ScalingEventStore, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

// Stop cancels the logger and waits for the in-flight event
func (l *EventLogger) Stop() {
	l.cancel()
	<-l.done
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"service_id": event.ServiceID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	switch event.Type {
	case models.EventTypeScalingComplete, models.EventTypeScalingFailed:
		l.persistScalingEvent(event)
	}
}

func (l *EventLogger) persistScalingEvent(event *models.Event) {
	if l.store == nil {
		return
	}
	scalingEvent, ok := event.Data.(*models.ScalingEvent)
	if !ok {
		logger.Warnf("Unexpected payload for %s event", event.Type)
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
	defer cancel()

	if err := l.store.Insert(ctx, scalingEvent); err != nil {
		logger.WithService(scalingEvent.ServiceID).Errorf("Failed to persist scaling event: %v", err)
	}
}
