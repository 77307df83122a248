package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops idle per-session query state.
// *querystate.Registry satisfies it.
type Sweeper interface {
	Sweep(now time.Time) int
}

// StateSweep is a background worker that periodically drops query state
// for sessions that have gone idle.
type StateSweep struct {
	registry Sweeper
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStateSweep creates a sweeper that runs every interval.
func NewStateSweep(registry Sweeper, logger *zap.Logger, interval time.Duration) *StateSweep {
	return &StateSweep{
		registry: registry,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *StateSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("query state sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *StateSweep) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("query state sweeper stopped")
	})
}

func (w *StateSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *StateSweep) sweep() {
	if n := w.registry.Sweep(w.now()); n > 0 {
		w.log.Info("dropped idle query state", zap.Int("count", n))
	}
}
