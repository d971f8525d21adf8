package events

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/hostspec/internal/logger"
)

// LoggingPublisher writes each event as a debug log entry and fans it out to subscribers.
type LoggingPublisher struct {
	logger *logger.Logger
	subs   map[string][]subscriptionEntry
	nextID int
	mu     sync.RWMutex
}

// NewLoggingPublisher creates a publisher backed by log.
func NewLoggingPublisher(log *logger.Logger) *LoggingPublisher {
	return &LoggingPublisher{
		logger: log,
		subs:   make(map[string][]subscriptionEntry),
	}
}

// Publish logs the event then runs its handlers in subscription order.
func (p *LoggingPublisher) Publish(ctx context.Context, event Event) {
	if p == nil || event.Type == "" {
		return
	}

	p.mu.RLock()
	handlers := append([]subscriptionEntry(nil), p.subs[event.Type]...)
	handlers = append(handlers, p.subs[""]...)
	p.mu.RUnlock()

	fields := make(map[string]any, len(event.Payload)+1)
	for key, value := range event.Payload {
		fields[key] = value
	}
	fields["event_type"] = event.Type
	p.logger.WithFields(fields).Debug("run event")

	for _, entry := range handlers {
		if err := entry.handler(ctx, event); err != nil {
			p.logger.WithFields(map[string]any{"event_type": event.Type}).Error(err, "event handler failed")
		}
	}
}

// Subscribe registers handler for eventType. An empty eventType receives every event.
func (p *LoggingPublisher) Subscribe(eventType string, handler Handler) Subscription {
	if p == nil || handler == nil {
		return noopSubscription{}
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[eventType] = append(p.subs[eventType], subscriptionEntry{id: id, handler: handler})
	p.mu.Unlock()

	return subscription{
		cancel: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			handlers := p.subs[eventType]
			for i, entry := range handlers {
				if entry.id == id {
					p.subs[eventType] = append(handlers[:i:i], handlers[i+1:]...)
					break
				}
			}
		},
	}
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriptionEntry struct {
	id      int
	handler Handler
}
