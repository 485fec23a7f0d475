// Package clients implements the external collaborator interfaces over
// plain HTTP/JSON.  The ticket ledger, payment coordinator and chat
// service are separate systems; this engine only speaks to them at
// their boundary.
package clients

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/iliyamo/group-invite-service/internal/orchestrator"
)

// httpTimeout bounds every collaborator round trip.  Join requests are
// additionally bounded by the orchestrator's payment timeout.
const httpTimeout = 15 * time.Second

func newClient() *http.Client {
    return &http.Client{Timeout: httpTimeout}
}

// postJSON posts body to url and decodes a JSON reply into out (out may
// be nil).  Non-2xx statuses are returned as errors with the status code.
func postJSON(ctx context.Context, hc *http.Client, url string, body, out interface{}) error {
    raw, err := json.Marshal(body)
    if err != nil {
        return err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := hc.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
    }
    if out == nil {
        return nil
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

// TicketLedger calls the ticket/payment ledger service.
type TicketLedger struct {
    base string
    hc   *http.Client
}

// NewTicketLedger returns a ledger client rooted at base.
func NewTicketLedger(base string) *TicketLedger {
    return &TicketLedger{base: base, hc: newClient()}
}

// BookTicket issues a ticket for one participant's seat.
func (t *TicketLedger) BookTicket(ctx context.Context, d orchestrator.TicketDetails) (string, error) {
    var reply struct {
        TicketID string `json:"ticket_id"`
    }
    body := map[string]interface{}{
        "invite_id":   d.InviteID,
        "user_id":     d.UserID,
        "showtime_id": d.ShowtimeID,
        "seat_number": d.Seat.Number,
        "seat_row":    d.Seat.Row,
        "seat_type":   d.Seat.Type,
        "amount":      d.Amount,
        "currency":    d.Currency,
    }
    if err := postJSON(ctx, t.hc, t.base+"/v1/tickets", body, &reply); err != nil {
        return "", err
    }
    return reply.TicketID, nil
}

// CancelTicket cancels a ticket and refunds the given amount.  The
// ledger treats cancelling an already-cancelled ticket as a no-op.
func (t *TicketLedger) CancelTicket(ctx context.Context, ticketID string, refundAmount int64) error {
    body := map[string]interface{}{"refund_amount": refundAmount}
    return postJSON(ctx, t.hc, t.base+"/v1/tickets/"+ticketID+"/cancel", body, nil)
}

// PaymentCoordinator calls the wallet/payment gateway front.
type PaymentCoordinator struct {
    base string
    hc   *http.Client
}

// NewPaymentCoordinator returns a payment client rooted at base.
func NewPaymentCoordinator(base string) *PaymentCoordinator {
    return &PaymentCoordinator{base: base, hc: newClient()}
}

// Charge requests a charge; the gateway dedupes on the idempotency key.
func (p *PaymentCoordinator) Charge(ctx context.Context, userID uint64, amount int64, idempotencyKey string) (orchestrator.ChargeResult, error) {
    var reply struct {
        PaymentRef string `json:"payment_ref"`
        Captured   bool   `json:"captured"`
    }
    body := map[string]interface{}{
        "user_id":         userID,
        "amount":          amount,
        "idempotency_key": idempotencyKey,
    }
    if err := postJSON(ctx, p.hc, p.base+"/v1/charges", body, &reply); err != nil {
        return orchestrator.ChargeResult{}, err
    }
    return orchestrator.ChargeResult{Ref: reply.PaymentRef, Captured: reply.Captured}, nil
}

// Refund reverses a captured charge that never became a committed seat.
func (p *PaymentCoordinator) Refund(ctx context.Context, userID uint64, amount int64, paymentRef string) error {
    body := map[string]interface{}{
        "user_id":     userID,
        "amount":      amount,
        "payment_ref": paymentRef,
    }
    return postJSON(ctx, p.hc, p.base+"/v1/refunds", body, nil)
}

// ChatRoomBinding calls the chat-membership service.  Room IDs are
// invite IDs.
type ChatRoomBinding struct {
    base string
    hc   *http.Client
}

// NewChatRoomBinding returns a chat client rooted at base.
func NewChatRoomBinding(base string) *ChatRoomBinding {
    return &ChatRoomBinding{base: base, hc: newClient()}
}

// JoinRoom adds the user to the invite's room.
func (c *ChatRoomBinding) JoinRoom(ctx context.Context, roomID string, userID uint64) error {
    body := map[string]interface{}{"user_id": userID}
    return postJSON(ctx, c.hc, c.base+"/v1/rooms/"+roomID+"/members", body, nil)
}

// LeaveRoom removes the user from the invite's room.
func (c *ChatRoomBinding) LeaveRoom(ctx context.Context, roomID string, userID uint64) error {
    body := map[string]interface{}{"user_id": userID}
    return postJSON(ctx, c.hc, c.base+"/v1/rooms/"+roomID+"/members/remove", body, nil)
}

// PostSystemMessage posts a typed system message to the room.
func (c *ChatRoomBinding) PostSystemMessage(ctx context.Context, roomID, msgType string, data map[string]interface{}) error {
    body := map[string]interface{}{"type": msgType, "data": data}
    return postJSON(ctx, c.hc, c.base+"/v1/rooms/"+roomID+"/system-messages", body, nil)
}
