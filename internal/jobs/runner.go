// Package jobs runs the periodic maintenance passes of the scheduling engine
// while the server is up.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"upkeep/internal/domain"
	"upkeep/internal/observability"
)

// Maintainer is the part of the engine the runner drives.
type Maintainer interface {
	SweepIncomplete(ctx context.Context) ([]string, error)
	CloseEmergencyEvents(ctx context.Context) ([]domain.Event, error)
}

type Runner struct {
	Engine            Maintainer
	SweepInterval     time.Duration
	EmergencyInterval time.Duration
	Log               *zap.SugaredLogger
}

func (r Runner) log() *zap.SugaredLogger {
	if r.Log != nil {
		return r.Log
	}
	return observability.Nop()
}

// Run executes both passes immediately and then on their intervals until ctx
// is cancelled. A failed pass is logged and retried on the next tick.
func (r Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if r.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, "sweep_incomplete", r.SweepInterval, r.sweep)
		}()
	}
	if r.EmergencyInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, "close_emergency_events", r.EmergencyInterval, r.closeEmergencies)
		}()
	}
	wg.Wait()
}

func (r Runner) loop(ctx context.Context, name string, every time.Duration, pass func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := pass(ctx); err != nil && ctx.Err() == nil {
			r.log().Warnw("maintenance pass failed", "job", name, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r Runner) sweep(ctx context.Context) error {
	moved, err := r.Engine.SweepIncomplete(ctx)
	if err != nil {
		return err
	}
	if len(moved) > 0 {
		r.log().Infow("overdue events marked incomplete", "count", len(moved))
	}
	return nil
}

func (r Runner) closeEmergencies(ctx context.Context) error {
	changed, err := r.Engine.CloseEmergencyEvents(ctx)
	if err != nil {
		return err
	}
	if len(changed) > 0 {
		r.log().Infow("emergency events extended", "count", len(changed))
	}
	return nil
}
