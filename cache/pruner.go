package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPruneInterval is how often the pruner sweeps when unconfigured.
const DefaultPruneInterval = 60 * time.Second

// PrunerConfig controls the background sweep.
type PrunerConfig struct {
	// Interval between sweeps. Defaults to DefaultPruneInterval.
	Interval time.Duration

	// OnPrune is invoked after each sweep with the eviction count and sweep
	// duration. Optional; used for logging and metrics.
	OnPrune func(removed int, elapsed time.Duration)
}

// Pruner periodically evicts expired entries from an Engine.
type Pruner struct {
	engine   Engine
	interval time.Duration
	onPrune  func(int, time.Duration)

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPruner creates a Pruner, applying defaults for zero config values.
func NewPruner(engine Engine, cfg PrunerConfig) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPruneInterval
	}
	return &Pruner{
		engine:   engine,
		interval: cfg.Interval,
		onPrune:  cfg.OnPrune,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Subsequent calls are no-ops.
func (p *Pruner) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.loop()
}

// Stop halts the loop and waits for the in-progress sweep, if any, to
// finish. Idempotent; a Pruner that was never started stops immediately.
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	if p.started.Load() {
		<-p.done
	}
}

func (p *Pruner) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			removed := p.engine.Prune()
			if p.onPrune != nil {
				p.onPrune(removed, time.Since(start))
			}
		case <-p.stop:
			return
		}
	}
}
