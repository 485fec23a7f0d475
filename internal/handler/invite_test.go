package handler

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/group-invite-service/internal/guard"
    "github.com/iliyamo/group-invite-service/internal/model"
    "github.com/iliyamo/group-invite-service/internal/orchestrator"
    "github.com/iliyamo/group-invite-service/internal/store"
)

type stubPublisher struct{}

func (stubPublisher) Publish(model.Event) {}

type stubLedger struct {
    mu  sync.Mutex
    seq int
}

func (s *stubLedger) BookTicket(ctx context.Context, d orchestrator.TicketDetails) (string, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.seq++
    return fmt.Sprintf("tkt-%d", s.seq), nil
}

func (s *stubLedger) CancelTicket(ctx context.Context, ticketID string, refundAmount int64) error {
    return nil
}

type stubPayments struct{}

func (stubPayments) Charge(ctx context.Context, userID uint64, amount int64, key string) (orchestrator.ChargeResult, error) {
    return orchestrator.ChargeResult{Ref: "pay-" + key, Captured: true}, nil
}

func (stubPayments) Refund(ctx context.Context, userID uint64, amount int64, ref string) error {
    return nil
}

type stubChat struct{}

func (stubChat) JoinRoom(ctx context.Context, roomID string, userID uint64) error  { return nil }
func (stubChat) LeaveRoom(ctx context.Context, roomID string, userID uint64) error { return nil }
func (stubChat) PostSystemMessage(ctx context.Context, roomID, msgType string, data map[string]interface{}) error {
    return nil
}

func newTestHandler() *InviteHandler {
    orch := orchestrator.New(store.NewMemory(), guard.New(), stubPublisher{}, &stubLedger{}, stubPayments{}, stubChat{}, orchestrator.Config{})
    return NewInviteHandler(orch)
}

// invoke runs an echo handler directly with an authenticated user.
func invoke(h echo.HandlerFunc, method, target, body string, userID uint64, inviteID string, header map[string]string) *httptest.ResponseRecorder {
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    for k, v := range header {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if userID != 0 {
        c.Set("user_id", float64(userID))
    }
    if inviteID != "" {
        c.SetParamNames("id")
        c.SetParamValues(inviteID)
    }
    _ = h(c)
    return rec
}

func createSession(t *testing.T, h *InviteHandler, host uint64) string {
    t.Helper()
    body := `{"movie_id":7,"showtime_id":42,"requested_seats":[` +
        `{"seat_number":"C1","seat_row":"C","seat_type":"REGULAR","price":200},` +
        `{"seat_number":"C2","seat_row":"C","seat_type":"REGULAR","price":200}]}`
    rec := invoke(h.Create, http.MethodPost, "/v1/invites", body, host, "", nil)
    if rec.Code != http.StatusCreated {
        t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
    }
    var out struct {
        Item struct {
            ID string `json:"id"`
        } `json:"item"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
        t.Fatalf("decode create response: %v", err)
    }
    if out.Item.ID == "" {
        t.Fatalf("create response missing id: %s", rec.Body.String())
    }
    return out.Item.ID
}

func TestCreateRejectsInvalidBody(t *testing.T) {
    h := newTestHandler()
    rec := invoke(h.Create, http.MethodPost, "/v1/invites", `{"movie_id":7}`, 1, "", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rec.Code)
    }
}

func TestCreateRequiresAuth(t *testing.T) {
    h := newTestHandler()
    rec := invoke(h.Create, http.MethodPost, "/v1/invites", `{"showtime_id":42}`, 0, "", nil)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJoinFlowOverHTTP(t *testing.T) {
    h := newTestHandler()
    id := createSession(t, h, 1)

    rec := invoke(h.Join, http.MethodPost, "/v1/invites/"+id+"/join", "", 200, id,
        map[string]string{"Idempotency-Key": "key-1"})
    if rec.Code != http.StatusOK {
        t.Fatalf("join: expected 200, got %d (%s)", rec.Code, rec.Body.String())
    }
    var out struct {
        SeatAssigned  string `json:"seat_assigned"`
        SeatIndex     int    `json:"seat_index"`
        PaymentStatus string `json:"payment_status"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
        t.Fatalf("decode join response: %v", err)
    }
    if out.SeatAssigned != "C2" || out.SeatIndex != 1 {
        t.Fatalf("unexpected seat: %+v", out)
    }
    if out.PaymentStatus != model.PaymentCompleted {
        t.Fatalf("expected COMPLETED, got %s", out.PaymentStatus)
    }

    // Same key again returns the same seat without error.
    rec = invoke(h.Join, http.MethodPost, "/v1/invites/"+id+"/join", `{"idempotency_key":"key-1"}`, 200, id, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("replayed join: expected 200, got %d", rec.Code)
    }

    // Group is full now; a third user is turned away with a reason.
    rec = invoke(h.Join, http.MethodPost, "/v1/invites/"+id+"/join", "", 300, id,
        map[string]string{"Idempotency-Key": "key-2"})
    if rec.Code != http.StatusConflict {
        t.Fatalf("full join: expected 409, got %d (%s)", rec.Code, rec.Body.String())
    }
    if !strings.Contains(rec.Body.String(), `"reason"`) {
        t.Fatalf("conflict response missing reason: %s", rec.Body.String())
    }
}

func TestJoinRequiresIdempotencyKey(t *testing.T) {
    h := newTestHandler()
    id := createSession(t, h, 1)
    rec := invoke(h.Join, http.MethodPost, "/v1/invites/"+id+"/join", "", 200, id, nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rec.Code)
    }
}

func TestErrorMapping(t *testing.T) {
    h := newTestHandler()
    id := createSession(t, h, 1)

    // Unknown invite.
    rec := invoke(h.Get, http.MethodGet, "/v1/invites/nope", "", 0, "nope", nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("get missing: expected 404, got %d", rec.Code)
    }

    // Host cannot leave.
    rec = invoke(h.Leave, http.MethodPost, "/v1/invites/"+id+"/leave", "", 1, id, nil)
    if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "host_cannot_leave") {
        t.Fatalf("host leave: expected 409 host_cannot_leave, got %d (%s)", rec.Code, rec.Body.String())
    }

    // Stranger cannot cancel.
    rec = invoke(h.Cancel, http.MethodDelete, "/v1/invites/"+id, "", 999, id, nil)
    if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "not_host") {
        t.Fatalf("stranger cancel: expected 403 not_host, got %d (%s)", rec.Code, rec.Body.String())
    }

    // Host cancel succeeds, joining afterwards reports cancelled.
    rec = invoke(h.Cancel, http.MethodDelete, "/v1/invites/"+id, "", 1, id, nil)
    if rec.Code != http.StatusNoContent {
        t.Fatalf("cancel: expected 204, got %d (%s)", rec.Code, rec.Body.String())
    }
    rec = invoke(h.Join, http.MethodPost, "/v1/invites/"+id+"/join", "", 200, id,
        map[string]string{"Idempotency-Key": "key-after-cancel"})
    if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "cancelled") {
        t.Fatalf("join after cancel: expected 409 cancelled, got %d (%s)", rec.Code, rec.Body.String())
    }
}

func TestListOpenFiltersAndGet(t *testing.T) {
    h := newTestHandler()
    id := createSession(t, h, 1)

    rec := invoke(h.ListOpen, http.MethodGet, "/v1/invites?movie_id=7", "", 0, "", nil)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
        t.Fatalf("list open: expected session listed, got %d (%s)", rec.Code, rec.Body.String())
    }
    rec = invoke(h.ListOpen, http.MethodGet, "/v1/invites?movie_id=99", "", 0, "", nil)
    if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), id) {
        t.Fatalf("list open with foreign movie filter still returned the session")
    }

    rec = invoke(h.Get, http.MethodGet, "/v1/invites/"+id, "", 0, id, nil)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"PENDING"`) {
        t.Fatalf("get: expected PENDING session, got %d (%s)", rec.Code, rec.Body.String())
    }

    rec = invoke(h.ListMine, http.MethodGet, "/v1/my-invites", "", 1, "", nil)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
        t.Fatalf("list mine: expected session listed, got %d (%s)", rec.Code, rec.Body.String())
    }
}
