package events

import (
	"testing"
)

func TestBus_PublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(ScenarioCompleted, func(e Event) {
		got = append(got, e)
	})

	bus.Publish(ScenarioCompleted, "payload")

	if len(got) != 1 {
		t.Fatalf("Expected 1 delivered event, got %d", len(got))
	}
	if got[0].Kind != ScenarioCompleted {
		t.Errorf("Expected kind %v, got %v", ScenarioCompleted, got[0].Kind)
	}
	if got[0].Payload != "payload" {
		t.Errorf("Expected payload to round-trip, got %v", got[0].Payload)
	}
}

func TestBus_KindIsolation(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(BaselineRecorded, func(Event) { calls++ })

	bus.Publish(RegressionDetected, nil)

	if calls != 0 {
		t.Errorf("Expected no deliveries for a different kind, got %d", calls)
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(SuiteProgress, func(Event) { calls++ })

	bus.Publish(SuiteProgress, nil)
	unsubscribe()
	unsubscribe()
	bus.Publish(SuiteProgress, nil)

	if calls != 1 {
		t.Errorf("Expected exactly 1 delivery before unsubscribe, got %d", calls)
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	first, second := 0, 0
	bus.Subscribe(ObservationRecorded, func(Event) { first++ })
	bus.Subscribe(ObservationRecorded, func(Event) { second++ })

	bus.Publish(ObservationRecorded, nil)

	if first != 1 || second != 1 {
		t.Errorf("Expected both subscribers to receive the event, got %d and %d", first, second)
	}
}
