package events

import (
	"fmt"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SignalObserved(serviceID string, signal *models.Signal) {
	event := models.NewEvent(models.EventTypeSignalObserved, serviceID, "Telemetry observed").
		WithData(signal)
	p.publish(event)
}

func (p *Publisher) TelemetryUnavailable(serviceID, reason string) {
	event := models.NewEvent(models.EventTypeTelemetryUnavailable, serviceID, "No reliable signal, holding capacity").
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{"reason": reason})
	p.publish(event)
}

func (p *Publisher) DecisionMade(serviceID string, decision models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, serviceID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ScalingStarted(serviceID string, decision models.ScalingDecision) {
	msg := fmt.Sprintf("Scaling started: %s %d -> %d", decision.Action, decision.CurrentCount, decision.TargetCount)
	event := models.NewEvent(models.EventTypeScalingStarted, serviceID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ScalingComplete(serviceID string, scalingEvent *models.ScalingEvent) {
	msg := "Scaling complete: " + string(scalingEvent.Action)
	event := models.NewEvent(models.EventTypeScalingComplete, serviceID, msg).
		WithData(scalingEvent)
	p.publish(event)
}

func (p *Publisher) ScalingFailed(serviceID string, scalingEvent *models.ScalingEvent) {
	msg := "Scaling failed: " + string(scalingEvent.Action)
	event := models.NewEvent(models.EventTypeScalingFailed, serviceID, msg).
		WithSeverity(models.SeverityCritical).
		WithData(scalingEvent)
	p.publish(event)
}

func (p *Publisher) ZeroBoundary(notice models.ZeroBoundaryNotice) {
	msg := "Zero boundary crossed: " + string(notice.Action)
	event := models.NewEvent(models.EventTypeZeroBoundary, notice.ServiceID, msg).
		WithSeverity(models.SeverityWarning).
		WithData(notice)
	p.publish(event)
}

func (p *Publisher) Alert(serviceID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, serviceID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(serviceID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, serviceID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
