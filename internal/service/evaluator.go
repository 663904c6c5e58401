package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"confluence-engine/internal/cache"
	"confluence-engine/internal/database"
	"confluence-engine/internal/engine"
	"confluence-engine/internal/events"
	"confluence-engine/internal/logging"
)

// SnapshotProvider supplies raw market data for a symbol
type SnapshotProvider interface {
	Snapshot(symbol string) *engine.RawSnapshot
}

// StoredEvaluation is an evaluation stamped with its audit identity
type StoredEvaluation struct {
	ID          uuid.UUID          `json:"id"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
	*engine.Evaluation
}

// Evaluator runs the scoring engine against live snapshots and fans the
// results out to storage, cache and the event bus. The engine itself
// stays pure: IDs and timestamps are attached here.
type Evaluator struct {
	mu       sync.RWMutex
	eng      *engine.Engine
	provider SnapshotProvider
	repo     *database.Repository
	cache    *cache.CacheService
	bus      *events.EventBus
	cacheTTL time.Duration
	log      *logging.Logger
}

// NewEvaluator wires the evaluation pipeline. cache may be nil when Redis
// is disabled.
func NewEvaluator(
	profiles *engine.ProfileSet,
	provider SnapshotProvider,
	repo *database.Repository,
	cacheService *cache.CacheService,
	bus *events.EventBus,
	cacheTTL time.Duration,
) *Evaluator {
	return &Evaluator{
		eng:      engine.New(profiles),
		provider: provider,
		repo:     repo,
		cache:    cacheService,
		bus:      bus,
		cacheTTL: cacheTTL,
		log:      logging.WithComponent("evaluator"),
	}
}

// Evaluate fetches a fresh snapshot, scores it, persists the run and
// refreshes the cache
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) (*StoredEvaluation, error) {
	snap := e.provider.Snapshot(symbol)

	e.mu.RLock()
	eng := e.eng
	e.mu.RUnlock()

	eval := eng.Evaluate(snap)

	stored := &StoredEvaluation{
		ID:          uuid.New(),
		EvaluatedAt: time.Now().UTC(),
		Evaluation:  eval,
	}

	if e.repo != nil {
		id, err := e.repo.SaveEvaluation(ctx, eval)
		if err != nil {
			return nil, fmt.Errorf("persist evaluation: %w", err)
		}
		stored.ID = id
	}

	e.cacheResult(ctx, stored)

	if e.bus != nil {
		e.bus.PublishEvaluationCompleted(symbol, string(eval.Recommendation.Action), eval.Recommendation.Score, stored)
		e.bus.PublishRecommendationUpdated(symbol, eval.Recommendation)
	}

	logging.EvaluationContext(symbol, eval.ProfileVersion).Info("Evaluation completed",
		"action", string(eval.Recommendation.Action),
		"score", eval.Recommendation.Score,
		"trace_id", logging.TraceIDFromContext(ctx),
	)

	return stored, nil
}

func (e *Evaluator) cacheResult(ctx context.Context, stored *StoredEvaluation) {
	if e.cache == nil {
		return
	}
	symbol := stored.Symbol
	if err := e.cache.SetJSON(ctx, cache.RecommendationKey(symbol), stored.Recommendation, e.cacheTTL); err != nil {
		e.log.Debug("Recommendation cache write skipped", "symbol", symbol, "error", err)
	}
	if err := e.cache.SetJSON(ctx, cache.EvaluationKey(symbol), stored, e.cacheTTL); err != nil {
		e.log.Debug("Evaluation cache write skipped", "symbol", symbol, "error", err)
	}
}

// LatestRecommendation serves the freshest recommendation for a symbol:
// cache first, database fallback, nil when the symbol was never evaluated
func (e *Evaluator) LatestRecommendation(ctx context.Context, symbol string) (*engine.Recommendation, error) {
	if e.cache != nil {
		var rec engine.Recommendation
		if err := e.cache.GetJSON(ctx, cache.RecommendationKey(symbol), &rec); err == nil {
			return &rec, nil
		}
	}

	if e.repo == nil {
		return nil, nil
	}
	row, err := e.repo.GetLatestEvaluation(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	var rec engine.Recommendation
	if err := json.Unmarshal(row.Recommendation, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal stored recommendation: %w", err)
	}
	return &rec, nil
}

// LatestEvaluation serves the freshest full evaluation for a symbol
func (e *Evaluator) LatestEvaluation(ctx context.Context, symbol string) (*StoredEvaluation, error) {
	if e.cache != nil {
		var stored StoredEvaluation
		if err := e.cache.GetJSON(ctx, cache.EvaluationKey(symbol), &stored); err == nil {
			return &stored, nil
		}
	}
	// A cache miss falls back to re-reading the persisted recommendation
	// row; the horizon breakdown lives in timeframe_results
	if e.repo == nil {
		return nil, nil
	}
	row, err := e.repo.GetLatestEvaluation(ctx, symbol)
	if err != nil || row == nil {
		return nil, err
	}

	var rec engine.Recommendation
	if err := json.Unmarshal(row.Recommendation, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal stored recommendation: %w", err)
	}

	tfs, err := e.repo.GetTimeframeResults(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	timeframes := make([]engine.TimeframeResult, 0, len(tfs))
	for _, tf := range tfs {
		result := engine.TimeframeResult{
			Horizon:           tf.Horizon,
			Direction:         engine.Direction(tf.Direction),
			SignalCount:       tf.SignalCount,
			CalibratedWinRate: tf.CalibratedWinRate,
			Score:             tf.Score,
			MultiplierApplied: tf.MultiplierApplied,
			Actionable:        tf.Actionable,
		}
		if len(tf.Signals) > 0 {
			_ = json.Unmarshal(tf.Signals, &result.Signals)
		}
		timeframes = append(timeframes, result)
	}

	return &StoredEvaluation{
		ID:          row.ID,
		EvaluatedAt: row.CreatedAt,
		Evaluation: &engine.Evaluation{
			Symbol:         row.Symbol,
			ProfileVersion: row.ProfileVersion,
			Timeframes:     timeframes,
			Recommendation: rec,
		},
	}, nil
}

// AllRecommendations lists the newest stored recommendation per symbol
func (e *Evaluator) AllRecommendations(ctx context.Context, limit int) ([]*database.EvaluationRow, error) {
	if e.repo == nil {
		return nil, nil
	}
	return e.repo.GetLatestRecommendations(ctx, limit)
}

// Profiles returns the active profile set
func (e *Evaluator) Profiles() *engine.ProfileSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.eng.Profiles()
}

// UpdateProfiles validates and activates a new calibration. Faulty
// profiles are rejected before anything is swapped.
func (e *Evaluator) UpdateProfiles(ctx context.Context, ps *engine.ProfileSet) error {
	if err := ps.Validate(); err != nil {
		return fmt.Errorf("profile validation: %w", err)
	}

	if e.repo != nil {
		if err := e.repo.SaveProfileVersion(ctx, ps); err != nil {
			return fmt.Errorf("persist profile version: %w", err)
		}
	}

	e.mu.Lock()
	e.eng = engine.New(ps)
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.PublishProfileUpdated(ps.Version)
	}
	e.log.Info("Profile set activated", "version", ps.Version)
	return nil
}

// Watchlist lists the enabled sweep symbols
func (e *Evaluator) Watchlist(ctx context.Context) ([]*database.WatchlistEntry, error) {
	if e.repo == nil {
		return nil, nil
	}
	return e.repo.GetWatchlist(ctx)
}

// AddToWatchlist enrolls a symbol in the scheduler sweep
func (e *Evaluator) AddToWatchlist(ctx context.Context, symbol string) error {
	if e.repo == nil {
		return fmt.Errorf("watchlist requires a database")
	}
	if err := e.repo.AddWatchlistSymbol(ctx, symbol); err != nil {
		return err
	}
	if e.bus != nil {
		e.bus.PublishWatchlistChanged(symbol, "added")
	}
	return nil
}

// RemoveFromWatchlist drops a symbol from the sweep
func (e *Evaluator) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	if e.repo == nil {
		return fmt.Errorf("watchlist requires a database")
	}
	if err := e.repo.RemoveWatchlistSymbol(ctx, symbol); err != nil {
		return err
	}
	if e.bus != nil {
		e.bus.PublishWatchlistChanged(symbol, "removed")
	}
	return nil
}
