package scheduler

import (
    "context"
    "testing"
    "time"

    "github.com/iliyamo/group-invite-service/internal/guard"
    "github.com/iliyamo/group-invite-service/internal/model"
    "github.com/iliyamo/group-invite-service/internal/orchestrator"
    "github.com/iliyamo/group-invite-service/internal/store"
)

type nopPublisher struct{}

func (nopPublisher) Publish(model.Event) {}

type nopLedger struct{}

func (nopLedger) BookTicket(ctx context.Context, d orchestrator.TicketDetails) (string, error) {
    return "tkt-1", nil
}

func (nopLedger) CancelTicket(ctx context.Context, ticketID string, refundAmount int64) error {
    return nil
}

type nopPayments struct{}

func (nopPayments) Charge(ctx context.Context, userID uint64, amount int64, key string) (orchestrator.ChargeResult, error) {
    return orchestrator.ChargeResult{Ref: "pay-" + key, Captured: true}, nil
}

func (nopPayments) Refund(ctx context.Context, userID uint64, amount int64, ref string) error {
    return nil
}

type nopChat struct{}

func (nopChat) JoinRoom(ctx context.Context, roomID string, userID uint64) error  { return nil }
func (nopChat) LeaveRoom(ctx context.Context, roomID string, userID uint64) error { return nil }
func (nopChat) PostSystemMessage(ctx context.Context, roomID, msgType string, data map[string]interface{}) error {
    return nil
}

func TestSweepExpiresOverdueSessions(t *testing.T) {
    st := store.NewMemory()
    orch := orchestrator.New(st, guard.New(), nopPublisher{}, nopLedger{}, nopPayments{}, nopChat{}, orchestrator.Config{})
    ctx := context.Background()

    s, err := orch.CreateInvite(ctx, orchestrator.CreateParams{
        HostUserID: 1,
        ShowtimeID: 42,
        Seats:      []model.Seat{{Number: "A1", Row: "A", Price: 100}, {Number: "A2", Row: "A", Price: 100}},
    })
    if err != nil {
        t.Fatalf("CreateInvite: %v", err)
    }

    // Push the deadline into the past so the next sweep picks it up.
    cur, err := st.Get(ctx, s.ID)
    if err != nil {
        t.Fatalf("Get: %v", err)
    }
    overdue := cur.Clone()
    overdue.ExpiresAt = time.Now().UTC().Add(-time.Minute)
    if err := st.CompareAndSwap(ctx, s.ID, cur.Version, overdue); err != nil {
        t.Fatalf("CompareAndSwap: %v", err)
    }

    runCtx, cancel := context.WithCancel(ctx)
    defer cancel()
    done := make(chan struct{})
    go func() {
        defer close(done)
        New(st, orch, 10*time.Millisecond).Run(runCtx)
    }()

    deadline := time.Now().Add(2 * time.Second)
    for {
        got, err := st.Get(ctx, s.ID)
        if err != nil {
            t.Fatalf("Get: %v", err)
        }
        if got.Status == model.StatusExpired {
            break
        }
        if time.Now().After(deadline) {
            t.Fatalf("session never expired, status %s", got.Status)
        }
        time.Sleep(5 * time.Millisecond)
    }
    cancel()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("scheduler did not stop on context cancel")
    }
}

func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
    st := store.NewMemory()
    orch := orchestrator.New(st, guard.New(), nopPublisher{}, nopLedger{}, nopPayments{}, nopChat{}, orchestrator.Config{})
    ctx := context.Background()

    s, err := orch.CreateInvite(ctx, orchestrator.CreateParams{
        HostUserID: 1,
        ShowtimeID: 42,
        Seats:      []model.Seat{{Number: "A1", Row: "A", Price: 100}},
    })
    if err != nil {
        t.Fatalf("CreateInvite: %v", err)
    }

    sched := New(st, orch, time.Minute)
    sched.sweep(ctx)

    got, err := st.Get(ctx, s.ID)
    if err != nil {
        t.Fatalf("Get: %v", err)
    }
    if got.Status == model.StatusExpired {
        t.Fatal("fresh session was expired by the sweep")
    }
}
