package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventEvaluationCompleted   EventType = "EVALUATION_COMPLETED"
	EventRecommendationUpdated EventType = "RECOMMENDATION_UPDATED"
	EventProfileUpdated        EventType = "PROFILE_UPDATED"
	EventWatchlistChanged      EventType = "WATCHLIST_CHANGED"
	EventSweepCompleted        EventType = "SWEEP_COMPLETED"
	EventError                 EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishEvaluationCompleted publishes a completed engine run
func (eb *EventBus) PublishEvaluationCompleted(symbol, action string, score float64, evaluation interface{}) {
	eb.Publish(Event{
		Type: EventEvaluationCompleted,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"action":     action,
			"score":      score,
			"evaluation": evaluation,
		},
	})
}

// PublishRecommendationUpdated publishes a fresh recommendation for a symbol
func (eb *EventBus) PublishRecommendationUpdated(symbol string, recommendation interface{}) {
	eb.Publish(Event{
		Type: EventRecommendationUpdated,
		Data: map[string]interface{}{
			"symbol":         symbol,
			"recommendation": recommendation,
		},
	})
}

// PublishProfileUpdated publishes a calibration change
func (eb *EventBus) PublishProfileUpdated(version string) {
	eb.Publish(Event{
		Type: EventProfileUpdated,
		Data: map[string]interface{}{
			"version": version,
		},
	})
}

// PublishWatchlistChanged publishes a watchlist add or remove
func (eb *EventBus) PublishWatchlistChanged(symbol, change string) {
	eb.Publish(Event{
		Type: EventWatchlistChanged,
		Data: map[string]interface{}{
			"symbol": symbol,
			"change": change,
		},
	})
}

// PublishSweepCompleted publishes a finished watchlist sweep
func (eb *EventBus) PublishSweepCompleted(symbols, failures int, elapsed time.Duration) {
	eb.Publish(Event{
		Type: EventSweepCompleted,
		Data: map[string]interface{}{
			"symbols":    symbols,
			"failures":   failures,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
