package testutil

import (
	"context"
	"sync"

	"github.com/powersol-lab/backend/pkg/pubsub"
)

type PublishedEvent struct {
	Topic string
	Pack  *pubsub.Pack
}

// EventRecorder is an in-memory publisher. When Err is set every publish is
// refused with it and nothing is kept.
type EventRecorder struct {
	Err error

	mu     sync.Mutex
	events []PublishedEvent
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(_ context.Context, topic string, pack *pubsub.Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	r.events = append(r.events, PublishedEvent{Topic: topic, Pack: pack})
	return nil
}

// Events returns the events published so far, oldest first.
func (r *EventRecorder) Events() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedEvent(nil), r.events...)
}
