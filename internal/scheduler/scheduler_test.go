package scheduler

import (
	"testing"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/engine"
	"confluence-engine/internal/events"
	"confluence-engine/internal/service"
)

type stubProvider struct{}

func (stubProvider) Snapshot(symbol string) *engine.RawSnapshot {
	return &engine.RawSnapshot{Symbol: symbol}
}

func newTestEvaluator() *service.Evaluator {
	return service.NewEvaluator(
		engine.DefaultProfileSet(),
		stubProvider{},
		nil,
		nil,
		events.NewEventBus(),
		time.Minute,
	)
}

// TestDisabledSchedulerIsNoop ensures Start and Stop are safe when the
// sweep loop never runs
func TestDisabledSchedulerIsNoop(t *testing.T) {
	s := NewScheduler(newTestEvaluator(), nil, config.SchedulerConfig{Enabled: false})
	s.Start()
	s.Stop()

	if s.LastSweep() != nil {
		t.Error("Disabled scheduler should never record a sweep")
	}
}

// TestSweepWithEmptyWatchlist records nothing when there is no work
func TestSweepWithEmptyWatchlist(t *testing.T) {
	s := NewScheduler(newTestEvaluator(), events.NewEventBus(), config.SchedulerConfig{
		Enabled:      true,
		IntervalSecs: 60,
		WorkerCount:  2,
	})

	s.Sweep()

	if s.LastSweep() != nil {
		t.Error("Empty watchlist sweep should not record a result")
	}
}

// TestConfigDefaults normalizes zero worker count and interval
func TestConfigDefaults(t *testing.T) {
	s := NewScheduler(newTestEvaluator(), nil, config.SchedulerConfig{Enabled: true})

	if s.config.WorkerCount != 4 {
		t.Errorf("Expected default worker count 4, got %d", s.config.WorkerCount)
	}
	if s.config.IntervalSecs != 60 {
		t.Errorf("Expected default interval 60s, got %d", s.config.IntervalSecs)
	}
}
