package brokers

import (
	"context"
	"encoding/json"
	"time"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/metrics"
	"app-groups-sync/internal/models"

	"github.com/google/uuid"
)

// EventSyncCompleted is the subject of the event published after a successful persist.
const EventSyncCompleted = "SyncCompleted"

const defaultPublishTimeout = 5 * time.Second

// Notifier turns sync results into broker messages. A Notifier without a broker is
// disabled and accepts every event without doing anything.
type Notifier struct {
	broker  Broker
	logger  logging.Logger
	timeout time.Duration
}

// NewNotifier wraps broker; broker may be nil.
func NewNotifier(broker Broker, logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Notifier{
		broker:  broker,
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "notifier"}),
		timeout: defaultPublishTimeout,
	}
}

// Enabled reports whether events are actually delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.broker != nil
}

// Name returns the broker name, or "none".
func (n *Notifier) Name() string {
	if !n.Enabled() {
		return "none"
	}
	return n.broker.Name()
}

// Notify publishes a SyncCompleted event. The publish is bounded by its own timeout
// so a slow broker cannot hold the caller's request open.
func (n *Notifier) Notify(ctx context.Context, event models.SyncEvent) error {
	if !n.Enabled() {
		return nil
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.SyncedAt.IsZero() {
		event.SyncedAt = time.Now().UTC()
	}
	if event.RequestID == "" {
		if requestID, ok := logging.RequestIDFromContext(ctx); ok {
			event.RequestID = requestID
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errors.InternalError("failed to encode sync event", err)
	}

	message := &Message{
		MessageID: event.EventID,
		Subject:   EventSyncCompleted,
		Headers: map[string]string{
			"event_type": EventSyncCompleted,
			"app_id":     event.AppID,
		},
		Body:      body,
		Timestamp: event.SyncedAt,
	}
	if event.RequestID != "" {
		message.Headers["request_id"] = event.RequestID
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.broker.Publish(publishCtx, message); err != nil {
		metrics.NotificationsTotal.WithLabelValues(n.broker.Name(), "failure").Inc()
		return err
	}

	metrics.NotificationsTotal.WithLabelValues(n.broker.Name(), "success").Inc()
	n.logger.Debug("Published sync event",
		logging.Field{Key: "event_id", Value: event.EventID},
		logging.Field{Key: "app_id", Value: event.AppID},
		logging.Field{Key: "broker", Value: n.broker.Name()},
	)
	return nil
}

// Health checks the broker; a disabled notifier is always healthy.
func (n *Notifier) Health(ctx context.Context) error {
	if !n.Enabled() {
		return nil
	}
	return n.broker.Health(ctx)
}

// Close releases the broker.
func (n *Notifier) Close() error {
	if !n.Enabled() {
		return nil
	}
	return n.broker.Close()
}
