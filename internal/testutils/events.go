package testutils

import (
	"sync"

	"github.com/srg/remotte/internal/session"
)

// EventRecorder is a Publisher that keeps every event in memory.
type EventRecorder struct {
	mu     sync.Mutex
	events []session.Event
}

// Publish implements session.Publisher.
func (r *EventRecorder) Publish(e session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Event(nil), r.events...)
}

// Strings renders recorded events with Event.String.
func (r *EventRecorder) Strings() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.String())
	}
	return out
}

// Last returns the most recent event.
func (r *EventRecorder) Last() (session.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return session.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Count returns the number of recorded events matching pred.
func (r *EventRecorder) Count(pred func(session.Event) bool) int {
	n := 0
	for _, e := range r.Events() {
		if pred(e) {
			n++
		}
	}
	return n
}
