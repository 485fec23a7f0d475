package orchestrator

import (
    "context"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// TicketDetails is everything the ticket ledger needs to issue a ticket
// for one participant's seat.
type TicketDetails struct {
    InviteID   string
    UserID     uint64
    ShowtimeID uint64
    Seat       model.Seat
    Amount     int64
    Currency   string
}

// TicketLedger is the external ticket/payment ledger.  CancelTicket must
// be idempotent on the ledger side: cancelling an already-cancelled
// ticket refunds nothing and returns nil.
type TicketLedger interface {
    BookTicket(ctx context.Context, d TicketDetails) (ticketID string, err error)
    CancelTicket(ctx context.Context, ticketID string, refundAmount int64) error
}

// ChargeResult is the outcome of a charge request.  Captured charges are
// settled immediately (wallet path); uncaptured ones are pending an
// external gateway flow that the caller finishes before ConfirmJoin.
type ChargeResult struct {
    Ref      string
    Captured bool
}

// PaymentCoordinator fronts the wallet/payment gateway.  Its internal
// protocol is opaque to this engine.  Charge must be idempotent on the
// given key.  Refund compensates a captured charge that never produced
// a ticket.
type PaymentCoordinator interface {
    Charge(ctx context.Context, userID uint64, amount int64, idempotencyKey string) (ChargeResult, error)
    Refund(ctx context.Context, userID uint64, amount int64, paymentRef string) error
}

// ChatRoomBinding is the external chat-membership service.  The chat
// room ID for an invite is the invite ID itself.
type ChatRoomBinding interface {
    JoinRoom(ctx context.Context, roomID string, userID uint64) error
    LeaveRoom(ctx context.Context, roomID string, userID uint64) error
    PostSystemMessage(ctx context.Context, roomID, msgType string, data map[string]interface{}) error
}

// EventPublisher receives session-state-change events for fan-out to
// realtime subscribers.  The broadcast hub implements it.
type EventPublisher interface {
    Publish(ev model.Event)
}
