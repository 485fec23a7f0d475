// Package guard provides per-invite serialization.  Join, leave, cancel
// and expire operations on one session must never interleave; the guard
// is the low-contention fast path for that, while the store's version
// check remains the correctness backstop across processes.
package guard

import (
    "context"
    "sync"
)

// entry is one keyed lock.  The semaphore channel carries the lock so
// acquisition can be interrupted by context cancellation; refs counts
// waiters plus holders so idle entries can be removed from the map.
type entry struct {
    sem  chan struct{}
    refs int
}

// Guard is a set of refcounted per-key mutexes.  The zero value is not
// usable; use New.
type Guard struct {
    mu      sync.Mutex
    entries map[string]*entry
}

// New returns an empty Guard.
func New() *Guard {
    return &Guard{entries: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held.
func (g *Guard) Acquire(key string) {
    e := g.ref(key)
    e.sem <- struct{}{}
}

// AcquireCtx blocks until the lock for key is held or ctx is done.  On
// cancellation the reference is dropped and ctx.Err is returned.
func (g *Guard) AcquireCtx(ctx context.Context, key string) error {
    e := g.ref(key)
    select {
    case e.sem <- struct{}{}:
        return nil
    case <-ctx.Done():
        g.unref(key)
        return ctx.Err()
    }
}

// Release unlocks key.  Calling Release without a matching acquire is a
// programming error and panics.
func (g *Guard) Release(key string) {
    g.mu.Lock()
    e, ok := g.entries[key]
    g.mu.Unlock()
    if !ok {
        panic("guard: release of unheld key " + key)
    }
    <-e.sem
    g.unref(key)
}

func (g *Guard) ref(key string) *entry {
    g.mu.Lock()
    defer g.mu.Unlock()
    e, ok := g.entries[key]
    if !ok {
        e = &entry{sem: make(chan struct{}, 1)}
        g.entries[key] = e
    }
    e.refs++
    return e
}

func (g *Guard) unref(key string) {
    g.mu.Lock()
    defer g.mu.Unlock()
    e, ok := g.entries[key]
    if !ok {
        return
    }
    e.refs--
    if e.refs <= 0 {
        delete(g.entries, key)
    }
}
