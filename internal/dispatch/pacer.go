package dispatch

import (
	"context"
	"time"
)

// Pacer enforces a fixed idle gap between consecutive calls. The gap is
// measured from the end of the previous call, so a slow call never shortens
// it.
type Pacer struct {
	interval time.Duration
	sleep    func(context.Context, time.Duration) error
	started  bool
}

func NewPacer(interval time.Duration) *Pacer {
	if interval < 0 {
		interval = 0
	}
	return &Pacer{interval: interval, sleep: sleepContext}
}

// WaitTurn returns immediately the first time and sleeps the full interval on
// every later call.
func (p *Pacer) WaitTurn(ctx context.Context) error {
	if !p.started {
		p.started = true
		return ctx.Err()
	}
	if p.interval == 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
