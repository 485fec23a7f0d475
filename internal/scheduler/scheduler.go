// Package scheduler runs the background sweep that expires unpaid invite
// sessions.  The client-side countdown is cosmetic; this loop is the
// expiration authority.
package scheduler

import (
    "context"
    "log"
    "time"

    "github.com/iliyamo/group-invite-service/internal/orchestrator"
    "github.com/iliyamo/group-invite-service/internal/store"
)

// Scheduler periodically lists sessions past their expiry and invokes
// the orchestrator's expire transition for each.  Multiple instances may
// run concurrently: a lost compare-and-swap turns a double expiry into a
// no-op instead of a double refund.
type Scheduler struct {
    store    store.InviteStore
    orch     *orchestrator.Orchestrator
    interval time.Duration
}

// New constructs a Scheduler.  Interval defaults to 30 seconds.
func New(st store.InviteStore, orch *orchestrator.Orchestrator, interval time.Duration) *Scheduler {
    if interval <= 0 {
        interval = 30 * time.Second
    }
    return &Scheduler{store: st, orch: orch, interval: interval}
}

// Run sweeps until ctx is cancelled.  One sweep runs immediately on
// start so restarts do not delay overdue expirations by a full interval.
func (s *Scheduler) Run(ctx context.Context) {
    s.sweep(ctx)
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            s.sweep(ctx)
        }
    }
}

// sweep expires every overdue session, logging and continuing on
// per-session failures so one bad session cannot stall the loop.
func (s *Scheduler) sweep(ctx context.Context) {
    ids, err := s.store.ListExpired(ctx, time.Now().UTC())
    if err != nil {
        log.Printf("scheduler: list expired invites failed: %v", err)
        return
    }
    for _, id := range ids {
        if err := s.orch.Expire(ctx, id); err != nil {
            // Terminal-state errors mean another instance won the race.
            log.Printf("scheduler: expire invite %s: %v", id, err)
        }
    }
}
