// Package driver advances running games on a fixed interval so clients only
// have to send keys.
package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/wricardo/snake-engine/game/metrics"
	"github.com/wricardo/snake-engine/game/service"
)

// DefaultWorkers bounds the goroutines ticking sessions in one round
const DefaultWorkers = 64

// Sessions is the part of the game service the driver calls
type Sessions interface {
	ListActiveSessions(ctx context.Context) ([]string, error)
	Tick(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error)
}

// Publisher receives the result of every driven tick
type Publisher interface {
	BroadcastTick(result *service.TickResult)
}

// Driver ticks every running session once per interval
type Driver struct {
	interval  time.Duration
	sessions  Sessions
	publisher Publisher
	pool      *ants.Pool
	logger    *zap.Logger
}

// New creates a driver; publisher and logger may be nil
func New(interval time.Duration, sessions Sessions, publisher Publisher, workers int, logger *zap.Logger) (*Driver, error) {
	if interval <= 0 {
		return nil, errors.New("driver interval must be positive")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		interval:  interval,
		sessions:  sessions,
		publisher: publisher,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Run ticks until ctx is done, then releases the worker pool
func (d *Driver) Run(ctx context.Context) error {
	defer d.pool.Release()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("tick driver started", zap.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("tick driver stopped")
			return nil
		case <-ticker.C:
			d.Round(ctx)
		}
	}
}

// Round ticks every running session once and waits for all of them. It
// returns the number of sessions ticked.
func (d *Driver) Round(ctx context.Context) int {
	start := time.Now()
	defer func() {
		metrics.ObserveDriverRound(time.Since(start).Seconds())
	}()

	ids, err := d.sessions.ListActiveSessions(ctx)
	if err != nil {
		d.logger.Warn("failed to list active sessions", zap.Error(err))
		return 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ticked  int
		dropped int
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		if err := d.pool.Submit(func() {
			defer wg.Done()
			if d.tick(ctx, id) {
				mu.Lock()
				ticked++
				mu.Unlock()
			}
		}); err != nil {
			wg.Done()
			dropped++
		}
	}
	if dropped > 0 {
		d.logger.Warn("failed to submit sessions to the tick pool", zap.Int("count", dropped))
	}

	wg.Wait()
	return ticked
}

func (d *Driver) tick(ctx context.Context, id string) bool {
	result, err := d.sessions.Tick(ctx, id, 1)
	if err != nil {
		// The session may have been deleted since it was listed
		if !errors.Is(err, service.ErrSessionNotFound) {
			d.logger.Warn("driver tick failed", zap.String("session", id), zap.Error(err))
		}
		return false
	}
	if result.TicksExecuted == 0 {
		return false
	}
	if d.publisher != nil {
		d.publisher.BroadcastTick(result)
	}
	return true
}
