package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/group-invite-service/internal/model"
    "github.com/iliyamo/group-invite-service/internal/orchestrator"
    "github.com/iliyamo/group-invite-service/internal/pricing"
    "github.com/iliyamo/group-invite-service/internal/store"
)

// InviteHandler exposes the invite workflows over HTTP.  All mutating
// endpoints assume JWT authentication has already populated the user ID
// in the context; errors from the orchestrator are translated to
// machine-readable reasons so clients can decide between retrying a
// different seat and abandoning the flow.
type InviteHandler struct {
    Orch *orchestrator.Orchestrator
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(orch *orchestrator.Orchestrator) *InviteHandler {
    if orch == nil {
        panic("nil orchestrator passed to NewInviteHandler")
    }
    return &InviteHandler{Orch: orch}
}

// createRequest is the body of POST /v1/invites.
type createRequest struct {
    MovieID    uint64       `json:"movie_id"`
    TheaterID  uint64       `json:"theater_id"`
    ScreenID   uint64       `json:"screen_id"`
    ShowtimeID uint64       `json:"showtime_id"`
    ShowDate   string       `json:"show_date"`
    ShowTime   string       `json:"show_time"`
    Seats      []model.Seat `json:"requested_seats"`
    Coupon     *model.Coupon `json:"coupon,omitempty"`
}

// Create handles POST /v1/invites.  The host reserves the seat block,
// pays for the first seat and receives the new session.
func (h *InviteHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ShowtimeID == 0 || len(body.Seats) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and requested_seats are required"})
    }
    s, err := h.Orch.CreateInvite(c.Request().Context(), orchestrator.CreateParams{
        HostUserID: userID,
        MovieID:    body.MovieID,
        TheaterID:  body.TheaterID,
        ScreenID:   body.ScreenID,
        ShowtimeID: body.ShowtimeID,
        ShowDate:   body.ShowDate,
        ShowTime:   body.ShowTime,
        Seats:      body.Seats,
        Coupon:     body.Coupon,
    })
    if err != nil {
        if errors.Is(err, orchestrator.ErrPaymentFailed) {
            return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed", "reason": "payment_failed"})
        }
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": s})
}

// ListOpen handles GET /v1/invites.  It returns joinable sessions; pass
// include_closed=true to include terminal ones.  Results may be served
// from the Redis response cache.
func (h *InviteHandler) ListOpen(c echo.Context) error {
    f := store.Filters{
        MovieID:       parseUintQuery(c, "movie_id"),
        TheaterID:     parseUintQuery(c, "theater_id"),
        ShowtimeID:    parseUintQuery(c, "showtime_id"),
        IncludeClosed: c.QueryParam("include_closed") == "true",
    }
    items, err := h.Orch.ListOpen(c.Request().Context(), f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load invites"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListMine handles GET /v1/my-invites.
func (h *InviteHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Orch.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load invites"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/invites/:id.  Clients use it to reconcile after
// realtime event gaps.
func (h *InviteHandler) Get(c echo.Context) error {
    s, err := h.Orch.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        return h.mapError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": s})
}

// joinRequest is the body of POST /v1/invites/:id/join.  The idempotency
// key may alternatively be supplied in the Idempotency-Key header.
type joinRequest struct {
    IdempotencyKey string `json:"idempotency_key"`
}

// Join handles POST /v1/invites/:id/join.  The caller claims the next
// seat; retried calls with the same idempotency key return the original
// outcome without double-charging.
func (h *InviteHandler) Join(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body joinRequest
    _ = c.Bind(&body)
    key := c.Request().Header.Get("Idempotency-Key")
    if key == "" {
        key = body.IdempotencyKey
    }
    if key == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency key is required"})
    }
    reply, err := h.Orch.RequestJoin(c.Request().Context(), c.Param("id"), userID, key)
    if err != nil {
        return h.mapError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "seat_assigned":   reply.Seat.Number,
        "seat_index":      reply.SeatIndex,
        "price_breakdown": reply.Breakdown,
        "payment_status":  reply.PaymentStatus,
    })
}

// confirmRequest is the body of POST /v1/invites/:id/confirm.
type confirmRequest struct {
    TicketID string `json:"ticket_id"`
    Amount   int64  `json:"amount"`
}

// Confirm handles POST /v1/invites/:id/confirm, finalizing a participant
// after the caller's own payment flow completed.
func (h *InviteHandler) Confirm(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body confirmRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TicketID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id is required"})
    }
    if err := h.Orch.ConfirmJoin(c.Request().Context(), c.Param("id"), userID, body.TicketID, body.Amount); err != nil {
        return h.mapError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Leave handles POST /v1/invites/:id/leave.
func (h *InviteHandler) Leave(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Orch.Leave(c.Request().Context(), c.Param("id"), userID); err != nil {
        return h.mapError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Cancel handles DELETE /v1/invites/:id.  Only the host may cancel; the
// operation unwinds every remaining participant and is idempotent.
func (h *InviteHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Orch.Cancel(c.Request().Context(), c.Param("id"), userID); err != nil {
        return h.mapError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// mapError translates orchestrator sentinels to HTTP statuses with a
// machine-readable reason.
func (h *InviteHandler) mapError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, orchestrator.ErrInviteNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found", "reason": "not_found"})
    case errors.Is(err, orchestrator.ErrInviteExpired):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invite expired", "reason": "expired"})
    case errors.Is(err, orchestrator.ErrInviteCompleted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invite already completed", "reason": "completed"})
    case errors.Is(err, orchestrator.ErrInviteCancelled):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invite cancelled", "reason": "cancelled"})
    case errors.Is(err, pricing.ErrSeatsExhausted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "no seats remaining", "reason": "seats_exhausted"})
    case errors.Is(err, orchestrator.ErrPaymentFailed):
        return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed", "reason": "payment_failed"})
    case errors.Is(err, orchestrator.ErrNotAParticipant):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant", "reason": "not_a_participant"})
    case errors.Is(err, orchestrator.ErrHostCannotLeave):
        return c.JSON(http.StatusConflict, echo.Map{"error": "host cannot leave, cancel instead", "reason": "host_cannot_leave"})
    case errors.Is(err, orchestrator.ErrNotHost):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "only the host may cancel", "reason": "not_host"})
    case errors.Is(err, orchestrator.ErrConflict):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "concurrent update, retry", "reason": "conflict"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func parseUintQuery(c echo.Context, name string) uint64 {
    v := c.QueryParam(name)
    if v == "" {
        return 0
    }
    n, err := strconv.ParseUint(v, 10, 64)
    if err != nil {
        return 0
    }
    return n
}
