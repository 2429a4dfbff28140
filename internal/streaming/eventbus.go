package streaming

import (
	"context"
	"strconv"
	"sync"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

// EventBus distributes session events to local subscribers and, when
// configured, to NATS. It implements the engagement service's event
// publisher boundary; both the bus and its NATS side are optional.
type EventBus struct {
	nats   *NATSPublisher
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]chan *SessionEvent
	nextID      int
}

// NewEventBus creates a new event bus. nats may be nil for local-only fan-out.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]chan *SessionEvent),
	}
}

// PublishScamDetected announces a message crossing the scam threshold.
func (eb *EventBus) PublishScamDetected(ctx context.Context, sessionID string, score int, tags []string) {
	eb.publish(ctx, NewScamDetectedEvent(sessionID, score, tags))
}

// PublishSessionFinalized announces a finalized session with its report.
func (eb *EventBus) PublishSessionFinalized(ctx context.Context, report *models.FinalReport) {
	eb.publish(ctx, NewSessionFinalizedEvent(report))
}

func (eb *EventBus) publish(ctx context.Context, event *SessionEvent) {
	if eb.nats != nil && eb.nats.IsConnected() {
		if err := eb.nats.PublishSessionEvent(ctx, event); err != nil {
			eb.logger.Warn().Err(err).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for id, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}
}

// Subscribe registers a local subscriber and returns its channel along with
// an unsubscribe function.
func (eb *EventBus) Subscribe() (<-chan *SessionEvent, func()) {
	eb.mu.Lock()
	eb.nextID++
	id := strconv.Itoa(eb.nextID)
	ch := make(chan *SessionEvent, 100)
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	unsubscribe := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if _, ok := eb.subscribers[id]; ok {
			close(ch)
			delete(eb.subscribers, id)
			eb.logger.Debug().Str("subscriber_id", id).Msg("subscriber removed")
		}
	}

	return ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Close closes the event bus
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, ch := range eb.subscribers {
		close(ch)
		delete(eb.subscribers, id)
	}
}
