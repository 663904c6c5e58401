package scheduler

import (
	"context"
	"sync"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/events"
	"confluence-engine/internal/logging"
	"confluence-engine/internal/service"
)

// SweepResult summarizes one watchlist sweep
type SweepResult struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Symbols   int           `json:"symbols"`
	Failures  int           `json:"failures"`
}

// Scheduler re-evaluates every enabled watchlist symbol on a fixed
// interval, spreading the work over a small worker pool
type Scheduler struct {
	evaluator *service.Evaluator
	bus       *events.EventBus
	config    config.SchedulerConfig
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	lastSweep *SweepResult
	log       *logging.Logger
}

// NewScheduler creates a new scheduler instance
func NewScheduler(evaluator *service.Evaluator, bus *events.EventBus, cfg config.SchedulerConfig) *Scheduler {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.IntervalSecs <= 0 {
		cfg.IntervalSecs = 60
	}
	return &Scheduler{
		evaluator: evaluator,
		bus:       bus,
		config:    cfg,
		stopChan:  make(chan struct{}),
		log:       logging.WithComponent("scheduler"),
	}
}

// Start begins the background sweep loop
func (s *Scheduler) Start() {
	if !s.config.Enabled {
		s.log.Info("Scheduler is disabled")
		return
	}

	s.wg.Add(1)
	go s.runLoop()
	s.log.Info("Scheduler started",
		"interval_secs", s.config.IntervalSecs,
		"workers", s.config.WorkerCount,
	)
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.config.IntervalSecs) * time.Second)
	defer ticker.Stop()

	// Run immediately
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.log.Info("Scheduler stopped")
			return
		}
	}
}

// Sweep executes a single sweep cycle (public method for manual triggering)
func (s *Scheduler) Sweep() {
	s.sweep()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()

	entries, err := s.evaluator.Watchlist(ctx)
	if err != nil {
		s.log.Error("Watchlist fetch failed", "error", err)
		if s.bus != nil {
			s.bus.PublishError("scheduler", "watchlist fetch failed", err)
		}
		return
	}
	if len(entries) == 0 {
		return
	}

	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		symbols = append(symbols, entry.Symbol)
	}

	symbolChan := make(chan string, len(symbols))
	var failures int
	var failMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if _, err := s.evaluator.Evaluate(ctx, symbol); err != nil {
					s.log.Warn("Sweep evaluation failed", "symbol", symbol, "error", err)
					failMu.Lock()
					failures++
					failMu.Unlock()
				}
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case symbolChan <- symbol:
		case <-ctx.Done():
		}
	}
	close(symbolChan)

	wg.Wait()

	result := &SweepResult{
		StartTime: startTime,
		Duration:  time.Since(startTime),
		Symbols:   len(symbols),
		Failures:  failures,
	}

	s.mu.Lock()
	s.lastSweep = result
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.PublishSweepCompleted(len(symbols), failures, result.Duration)
	}

	s.log.Info("Sweep completed",
		"symbols", len(symbols),
		"failures", failures,
		"duration", result.Duration.String(),
	)
}

// LastSweep returns the most recent sweep summary
func (s *Scheduler) LastSweep() *SweepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSweep
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	if !s.config.Enabled {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
}
