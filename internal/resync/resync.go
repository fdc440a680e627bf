// Package resync schedules periodic full refreshes of the reconciled state.
// The watcher-driven view is normally enough; a scheduled refresh catches
// anything lost while the process was suspended or the watcher dropped
// events.
package resync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const checkInterval = 30 * time.Second

// Resync runs a refresh function on a cron schedule
type Resync struct {
	schedule cron.Schedule

	mu      sync.Mutex
	lastRun time.Time
}

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// New creates a resync from a cron expression
func New(expr string) (*Resync, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return &Resync{schedule: schedule, lastRun: time.Now()}, nil
}

// NextRun returns the next scheduled refresh time
func (r *Resync) NextRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schedule.Next(r.lastRun)
}

// ShouldRun returns true if a refresh is due at the given time
func (r *Resync) ShouldRun(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.schedule.Next(r.lastRun)
	return !next.After(now)
}

// MarkRun records that a refresh ran at the given time
func (r *Resync) MarkRun(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = now
}

// Start runs the schedule loop until the context is cancelled, calling fn
// whenever a refresh is due
func (r *Resync) Start(ctx context.Context, fn func(context.Context) error) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if !r.ShouldRun(now) {
					continue
				}
				r.MarkRun(now)
				if err := fn(ctx); err != nil {
					log.Printf("scheduled refresh: %v", err)
				}
			}
		}
	}()
}
