// Package orchestrator coordinates the seat allocator, the invite store,
// the per-invite guard and the external collaborators (tickets, payment,
// chat) to implement the create/join/confirm/leave/cancel/expire
// workflows.
package orchestrator

import "errors"

// Sentinel errors surfaced to callers.  Handlers translate these into
// HTTP statuses; errors.Is works through any wrapping added at the call
// site.
var (
    // ErrInviteNotFound – no session exists for the given ID.
    ErrInviteNotFound = errors.New("invite not found")
    // ErrInviteExpired – the session's TTL elapsed (or it is already EXPIRED).
    ErrInviteExpired = errors.New("invite expired")
    // ErrInviteCompleted – the session already filled every slot.
    ErrInviteCompleted = errors.New("invite completed")
    // ErrInviteCancelled – the session was cancelled.
    ErrInviteCancelled = errors.New("invite cancelled")
    // ErrPaymentFailed – the charge was declined or timed out; no seat
    // was taken.
    ErrPaymentFailed = errors.New("payment failed")
    // ErrNotAParticipant – leave/confirm attempted by a non-member.
    ErrNotAParticipant = errors.New("not a participant")
    // ErrHostCannotLeave – the host must cancel instead of leaving.
    ErrHostCannotLeave = errors.New("host cannot leave, cancel instead")
    // ErrNotHost – cancel attempted by someone other than the host.
    ErrNotHost = errors.New("only the host may cancel")
    // ErrConflict – the bounded version-conflict retries were exhausted;
    // the caller should re-issue the request.
    ErrConflict = errors.New("concurrent update conflict, retry")
)

// errJoinCommitted aborts a join attempt whose idempotency key was
// committed by another instance while this one was mid-flight.  Never
// surfaced to callers; the original reply is returned instead.
var errJoinCommitted = errors.New("join already committed elsewhere")
