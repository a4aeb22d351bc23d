package events

import (
	"sync"
	"time"
)

// Kind identifies one class of notification fanned out by the core
type Kind string

const (
	ScenarioCompleted   Kind = "scenario-completed"
	ScenarioAborted     Kind = "scenario-aborted"
	SuiteProgress       Kind = "suite-progress"
	SuiteCompleted      Kind = "suite-completed"
	ObservationRecorded Kind = "observation-recorded"
	BaselineRecorded    Kind = "baseline-recorded"
	ComparisonCompleted Kind = "comparison-completed"
	RegressionDetected  Kind = "regression-detected"
	AlertDispatched     Kind = "alert-dispatched"
	AlertResolved       Kind = "alert-resolved"
)

// Event is one notification delivered to subscribers
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   interface{}
}

// Handler consumes one event. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(Event)

// Bus is a typed publish/subscribe fan-out guarded by a mutex. Subscribing
// returns an unsubscribe func that is safe to call more than once.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Kind]map[int]Handler
}

// NewBus returns an empty bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind]map[int]Handler),
	}
}

// Subscribe registers a handler for one event kind
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

// Publish delivers the event to every subscriber of its kind
func (b *Bus) Publish(kind Kind, payload interface{}) {
	b.mu.RLock()
	registered := b.handlers[kind]
	snapshot := make([]Handler, 0, len(registered))
	for _, h := range registered {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	event := Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
	for _, h := range snapshot {
		h(event)
	}
}
