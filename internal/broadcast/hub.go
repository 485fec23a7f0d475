// Package broadcast fans session-state-change events out to realtime
// subscribers.  Each invite has its own channel of subscribers; delivery
// is at-least-once and best-effort, so clients treat events as hints and
// reconcile against a GET of the session after a reconnect or a
// suspicious gap.
package broadcast

import (
    "sync"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// subscriberBuffer is the per-subscriber event backlog.  A subscriber
// that falls this far behind is dropped rather than blocking publishers.
const subscriberBuffer = 16

type subscriber struct {
    ch chan model.Event
}

// Hub is an in-process event bus keyed by invite ID.
type Hub struct {
    mu   sync.RWMutex
    subs map[string]map[*subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
    return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers interest in one invite's events.  The returned
// cancel function must be called exactly once; after it returns the
// event channel is closed.
func (h *Hub) Subscribe(inviteID string) (<-chan model.Event, func()) {
    sub := &subscriber{ch: make(chan model.Event, subscriberBuffer)}
    h.mu.Lock()
    set, ok := h.subs[inviteID]
    if !ok {
        set = make(map[*subscriber]struct{})
        h.subs[inviteID] = set
    }
    set[sub] = struct{}{}
    h.mu.Unlock()

    var once sync.Once
    cancel := func() {
        once.Do(func() {
            h.mu.Lock()
            if set, ok := h.subs[inviteID]; ok {
                delete(set, sub)
                if len(set) == 0 {
                    delete(h.subs, inviteID)
                }
            }
            h.mu.Unlock()
            close(sub.ch)
        })
    }
    return sub.ch, cancel
}

// Publish delivers the event to every current subscriber of its invite.
// Slow subscribers are skipped; they reconcile on their next GET.
func (h *Hub) Publish(ev model.Event) {
    h.mu.RLock()
    defer h.mu.RUnlock()
    for sub := range h.subs[ev.InviteID] {
        select {
        case sub.ch <- ev:
        default:
        }
    }
}

// SubscriberCount returns the number of active subscribers for an
// invite.  Used by tests and the health endpoint.
func (h *Hub) SubscriberCount(inviteID string) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.subs[inviteID])
}
