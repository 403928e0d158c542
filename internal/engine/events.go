// ABOUTME: Changefeed of committed mutations for presentation layers.
// ABOUTME: Non-blocking fan-out; slow subscribers miss events rather than stall the engine.
package engine

// EventType labels what kind of state changed.
type EventType string

const (
	// EventSessions means a plan's session records changed.
	EventSessions EventType = "sessions"
	// EventExercises means a plan's exercise completions changed.
	EventExercises EventType = "exercises"
	// EventSynced means a sync cycle updated delivery status.
	EventSynced EventType = "synced"
)

// Event is one committed change, scoped to a plan.
type Event struct {
	Type   EventType
	PlanID string
}

// Subscribe returns a channel receiving an event after each committed
// mutation. The channel is buffered; events are dropped, not queued,
// when a subscriber falls behind.
func (e *Engine) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()
	return ch
}

// emit fans an event out to all subscribers without blocking.
func (e *Engine) emit(ev Event) {
	e.subMu.Lock()
	subs := e.subs
	e.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
