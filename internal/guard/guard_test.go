package guard

import (
    "context"
    "sync"
    "testing"
    "time"
)

func TestAcquireSerializesSameKey(t *testing.T) {
    g := New()
    const workers = 32
    counter := 0
    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            g.Acquire("inv-1")
            defer g.Release("inv-1")
            // Unsynchronized increment; the guard is the only protection.
            c := counter
            time.Sleep(time.Microsecond)
            counter = c + 1
        }()
    }
    wg.Wait()
    if counter != workers {
        t.Fatalf("lost updates: counter=%d want %d", counter, workers)
    }
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
    g := New()
    g.Acquire("inv-1")
    defer g.Release("inv-1")

    done := make(chan struct{})
    go func() {
        g.Acquire("inv-2")
        g.Release("inv-2")
        close(done)
    }()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("acquire on a different key blocked")
    }
}

func TestAcquireCtxCancelled(t *testing.T) {
    g := New()
    g.Acquire("inv-1")

    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    if err := g.AcquireCtx(ctx, "inv-1"); err != context.DeadlineExceeded {
        t.Fatalf("expected DeadlineExceeded, got %v", err)
    }

    g.Release("inv-1")
    // The lock must still be acquirable after the cancelled waiter left.
    if err := g.AcquireCtx(context.Background(), "inv-1"); err != nil {
        t.Fatalf("AcquireCtx after cancel: %v", err)
    }
    g.Release("inv-1")
}

func TestEntriesAreReclaimed(t *testing.T) {
    g := New()
    g.Acquire("inv-1")
    g.Release("inv-1")
    g.mu.Lock()
    n := len(g.entries)
    g.mu.Unlock()
    if n != 0 {
        t.Fatalf("expected empty entry map, got %d entries", n)
    }
}
