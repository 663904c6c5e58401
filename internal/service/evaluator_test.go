package service

import (
	"context"
	"testing"
	"time"

	"confluence-engine/internal/engine"
	"confluence-engine/internal/events"
)

type stubProvider struct {
	snap *engine.RawSnapshot
}

func (p stubProvider) Snapshot(symbol string) *engine.RawSnapshot {
	if p.snap != nil {
		return p.snap
	}
	return &engine.RawSnapshot{Symbol: symbol}
}

// TestEvaluateStampsIdentity verifies the service layer attaches the ID
// and timestamp the pure engine deliberately omits
func TestEvaluateStampsIdentity(t *testing.T) {
	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, nil, time.Minute)

	before := time.Now().UTC()
	stored, err := e.Evaluate(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if stored.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected a non-nil evaluation ID")
	}
	if stored.EvaluatedAt.Before(before) {
		t.Errorf("EvaluatedAt %s predates the call", stored.EvaluatedAt)
	}
	if stored.Symbol != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", stored.Symbol)
	}
	if stored.ProfileVersion != "builtin-v1" {
		t.Errorf("Expected builtin profile version, got %s", stored.ProfileVersion)
	}
}

// TestEvaluatePublishesEvents checks the bus fan-out after a run
func TestEvaluatePublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	received := make(chan events.EventType, 4)
	bus.SubscribeAll(func(ev events.Event) {
		received <- ev.Type
	})

	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, bus, time.Minute)
	if _, err := e.Evaluate(context.Background(), "ETHUSDT"); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	seen := map[events.EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case et := <-received:
			seen[et] = true
		case <-time.After(time.Second):
			t.Fatalf("Only received %d of 2 events", i)
		}
	}
	if !seen[events.EventEvaluationCompleted] || !seen[events.EventRecommendationUpdated] {
		t.Errorf("Missing expected event types: %v", seen)
	}
}

// TestUpdateProfilesRejectsInvalid keeps the running engine untouched
// when a faulty calibration is submitted
func TestUpdateProfilesRejectsInvalid(t *testing.T) {
	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, nil, time.Minute)

	bad := &engine.ProfileSet{Version: ""}
	if err := e.UpdateProfiles(context.Background(), bad); err == nil {
		t.Fatal("Expected validation error for empty version")
	}

	if e.Profiles().Version != "builtin-v1" {
		t.Errorf("Active profiles should be unchanged, got %s", e.Profiles().Version)
	}
}

// TestUpdateProfilesSwapsEngine activates a valid calibration
func TestUpdateProfilesSwapsEngine(t *testing.T) {
	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, nil, time.Minute)

	ps := engine.DefaultProfileSet()
	ps.Version = "recalibrated-v2"
	if err := e.UpdateProfiles(context.Background(), ps); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if e.Profiles().Version != "recalibrated-v2" {
		t.Errorf("Expected new version active, got %s", e.Profiles().Version)
	}

	stored, err := e.Evaluate(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if stored.ProfileVersion != "recalibrated-v2" {
		t.Errorf("Evaluation should stamp the new version, got %s", stored.ProfileVersion)
	}
}

// TestLatestRecommendationWithoutState returns nil when the symbol was
// never evaluated and no persistence is wired
func TestLatestRecommendationWithoutState(t *testing.T) {
	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, nil, time.Minute)

	rec, err := e.LatestRecommendation(context.Background(), "NOPEUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil recommendation, got %+v", rec)
	}
}

// TestWatchlistRequiresDatabase rejects writes without a repository
func TestWatchlistRequiresDatabase(t *testing.T) {
	e := NewEvaluator(engine.DefaultProfileSet(), stubProvider{}, nil, nil, nil, time.Minute)

	if err := e.AddToWatchlist(context.Background(), "BTCUSDT"); err == nil {
		t.Error("Expected error adding to watchlist without a database")
	}
	if err := e.RemoveFromWatchlist(context.Background(), "BTCUSDT"); err == nil {
		t.Error("Expected error removing from watchlist without a database")
	}

	entries, err := e.Watchlist(context.Background())
	if err != nil || entries != nil {
		t.Errorf("Expected empty watchlist read, got %v, %v", entries, err)
	}
}
