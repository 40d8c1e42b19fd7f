package notify

import (
	"context"
	"errors"

	"github.com/OldStager01/capacity-controller/internal/events"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

var ErrNotifyFailed = errors.New("notification failed")

// BusNotifier republishes zero-boundary notices on the internal event bus
type BusNotifier struct {
	publisher *events.Publisher
}

func NewBusNotifier(publisher *events.Publisher) *BusNotifier {
	return &BusNotifier{publisher: publisher}
}

func (n *BusNotifier) Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error {
	n.publisher.ZeroBoundary(notice)
	return nil
}

// LogNotifier only writes the notice to the structured log
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error {
	logger.WithService(notice.ServiceID).WithField("action", notice.Action).
		Infof("Zero boundary crossed: %s", notice.Reason)
	return nil
}

type notifier interface {
	Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error
}

// Multi fans a notice out to every notifier and joins their errors
type Multi []notifier

func (m Multi) Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
