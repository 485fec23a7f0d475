package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/group-invite-service/internal/guard"
    "github.com/iliyamo/group-invite-service/internal/model"
    "github.com/iliyamo/group-invite-service/internal/pricing"
    "github.com/iliyamo/group-invite-service/internal/store"
)

// Config carries the tunables of the orchestrator.  Zero values fall
// back to the defaults below.
type Config struct {
    TTL            time.Duration // session time-to-live, default 3h
    PaymentTimeout time.Duration // bound on a single charge call, default 10s
    CASRetries     int           // bounded internal retries on version conflict, default 3
    Currency       string        // ISO currency code stamped on new sessions
}

const (
    defaultTTL            = 3 * time.Hour
    defaultPaymentTimeout = 10 * time.Second
    defaultCASRetries     = 3
    defaultCurrency       = "INR"

    chatRetryAttempts = 3
    chatRetryDelay    = 2 * time.Second
)

// Orchestrator is the façade implementing the invite workflows.  All
// mutation of a single session is serialized by the guard and written
// back through the store's compare-and-swap.
type Orchestrator struct {
    store    store.InviteStore
    guard    *guard.Guard
    events   EventPublisher
    tickets  TicketLedger
    payments PaymentCoordinator
    chat     ChatRoomBinding

    ttl            time.Duration
    paymentTimeout time.Duration
    casRetries     int
    currency       string

    // now is swapped out by tests.
    now func() time.Time
    // onCompleted fires once per session when the group fills; main
    // wires it to the RabbitMQ publisher.
    onCompleted func(s *model.InviteSession)
}

// New constructs an Orchestrator.  All collaborators must be non-nil.
func New(st store.InviteStore, g *guard.Guard, ev EventPublisher, tickets TicketLedger, payments PaymentCoordinator, chat ChatRoomBinding, cfg Config) *Orchestrator {
    if st == nil || g == nil || ev == nil || tickets == nil || payments == nil || chat == nil {
        panic("nil dependency passed to orchestrator.New")
    }
    if cfg.TTL <= 0 {
        cfg.TTL = defaultTTL
    }
    if cfg.PaymentTimeout <= 0 {
        cfg.PaymentTimeout = defaultPaymentTimeout
    }
    if cfg.CASRetries <= 0 {
        cfg.CASRetries = defaultCASRetries
    }
    if cfg.Currency == "" {
        cfg.Currency = defaultCurrency
    }
    return &Orchestrator{
        store:          st,
        guard:          g,
        events:         ev,
        tickets:        tickets,
        payments:       payments,
        chat:           chat,
        ttl:            cfg.TTL,
        paymentTimeout: cfg.PaymentTimeout,
        casRetries:     cfg.CASRetries,
        currency:       cfg.Currency,
        now:            func() time.Time { return time.Now().UTC() },
    }
}

// OnCompleted registers a hook fired once when a session transitions to
// COMPLETED.  It runs outside the guard.
func (o *Orchestrator) OnCompleted(fn func(s *model.InviteSession)) { o.onCompleted = fn }

// CreateParams describes the host's initial reservation request.  The
// seat order is fixed here and becomes the allocation priority; the
// coupon arrives already resolved and is never re-validated.
type CreateParams struct {
    HostUserID uint64
    MovieID    uint64
    TheaterID  uint64
    ScreenID   uint64
    ShowtimeID uint64
    ShowDate   string
    ShowTime   string
    Seats      []model.Seat
    Coupon     *model.Coupon
}

// CreateInvite creates a session, charges the host for the first seat in
// the plan and registers the host as participant 0.  The session starts
// in PENDING with expiry CreatedAt+TTL.
func (o *Orchestrator) CreateInvite(ctx context.Context, p CreateParams) (*model.InviteSession, error) {
    if p.HostUserID == 0 {
        return nil, errors.New("host user id is required")
    }
    if len(p.Seats) == 0 {
        return nil, errors.New("at least one seat is required")
    }
    seen := make(map[string]struct{}, len(p.Seats))
    for _, seat := range p.Seats {
        if seat.Number == "" {
            return nil, errors.New("seat number is required")
        }
        if _, dup := seen[seat.Number]; dup {
            return nil, fmt.Errorf("duplicate seat %s in plan", seat.Number)
        }
        seen[seat.Number] = struct{}{}
    }

    now := o.now()
    s := &model.InviteSession{
        ID:             uuid.NewString(),
        HostUserID:     p.HostUserID,
        MovieID:        p.MovieID,
        TheaterID:      p.TheaterID,
        ScreenID:       p.ScreenID,
        ShowtimeID:     p.ShowtimeID,
        ShowDate:       p.ShowDate,
        ShowTime:       p.ShowTime,
        RequestedSeats: append([]model.Seat(nil), p.Seats...),
        TotalSlots:     len(p.Seats),
        Coupon:         p.Coupon,
        Status:         model.StatusPending,
        Currency:       o.currency,
        CreatedAt:      now,
        ExpiresAt:      now.Add(o.ttl),
        JoinReplies:    make(map[string]model.JoinReply),
    }
    for _, seat := range s.RequestedSeats {
        s.TotalAmount += pricing.PriceFor(seat, s.Coupon).FinalAmount
    }

    hostSeat := s.RequestedSeats[0]
    breakdown := pricing.PriceFor(hostSeat, s.Coupon)
    res, err := o.charge(ctx, p.HostUserID, breakdown.FinalAmount, "create:"+s.ID)
    if err != nil {
        return nil, err
    }
    host := model.Participant{
        UserID:        p.HostUserID,
        SeatNumber:    hostSeat.Number,
        SeatIndex:     0,
        PaymentStatus: model.PaymentProcessing,
        Amount:        breakdown.FinalAmount,
        Role:          model.RoleHost,
        PaymentRef:    res.Ref,
        JoinedAt:      now,
    }
    if res.Captured {
        ticketID, err := o.tickets.BookTicket(ctx, TicketDetails{
            InviteID:   s.ID,
            UserID:     p.HostUserID,
            ShowtimeID: s.ShowtimeID,
            Seat:       hostSeat,
            Amount:     breakdown.FinalAmount,
            Currency:   s.Currency,
        })
        if err != nil {
            o.refund(p.HostUserID, breakdown.FinalAmount, res.Ref)
            return nil, fmt.Errorf("book host ticket: %w", err)
        }
        host.PaymentStatus = model.PaymentCompleted
        host.TicketID = ticketID
        s.PaidAmount = breakdown.FinalAmount
    }
    s.Participants = []model.Participant{host}

    if err := o.store.Create(ctx, s); err != nil {
        if host.PaymentStatus == model.PaymentCompleted {
            o.compensateTicket(host.TicketID, host.Amount)
        } else {
            o.refund(p.HostUserID, host.Amount, host.PaymentRef)
        }
        return nil, err
    }

    o.chatJoin(s.ID, p.HostUserID, map[string]interface{}{
        "event":       "group_created",
        "seat_number": hostSeat.Number,
    })
    return s.Clone(), nil
}

// RequestJoin claims the next seat of the session for userID.  Repeated
// calls with the same idempotency key return the original reply without
// charging again.  A failed or timed-out charge never takes a seat.
func (o *Orchestrator) RequestJoin(ctx context.Context, inviteID string, userID uint64, idemKey string) (model.JoinReply, error) {
    if idemKey == "" {
        idemKey = uuid.NewString()
    }
    if err := o.guard.AcquireCtx(ctx, inviteID); err != nil {
        return model.JoinReply{}, err
    }
    defer o.guard.Release(inviteID)

    s, err := o.load(ctx, inviteID)
    if err != nil {
        return model.JoinReply{}, err
    }
    if reply, ok := s.JoinReplies[idemKey]; ok {
        return reply, nil
    }
    if err := o.joinable(s); err != nil {
        return model.JoinReply{}, err
    }
    if idx := s.FindParticipant(userID); idx >= 0 {
        // Same user retrying without the original key: replay their seat.
        p := s.Participants[idx]
        seat := s.RequestedSeats[p.SeatIndex]
        return model.JoinReply{
            UserID:        userID,
            Seat:          seat,
            SeatIndex:     p.SeatIndex,
            Breakdown:     pricing.PriceFor(seat, s.Coupon),
            PaymentStatus: p.PaymentStatus,
        }, nil
    }
    if s.AvailableSlots() <= 0 {
        return model.JoinReply{}, pricing.ErrSeatsExhausted
    }
    seat, seatIdx, err := pricing.NextSeat(s)
    if err != nil {
        return model.JoinReply{}, err
    }
    breakdown := pricing.PriceFor(seat, s.Coupon)

    res, err := o.charge(ctx, userID, breakdown.FinalAmount, idemKey)
    if err != nil {
        return model.JoinReply{}, err
    }
    participant := model.Participant{
        UserID:        userID,
        SeatNumber:    seat.Number,
        SeatIndex:     seatIdx,
        PaymentStatus: model.PaymentProcessing,
        Amount:        breakdown.FinalAmount,
        Role:          model.RoleMember,
        PaymentRef:    res.Ref,
        JoinedAt:      o.now(),
    }
    if res.Captured {
        ticketID, err := o.tickets.BookTicket(ctx, TicketDetails{
            InviteID:   s.ID,
            UserID:     userID,
            ShowtimeID: s.ShowtimeID,
            Seat:       seat,
            Amount:     breakdown.FinalAmount,
            Currency:   s.Currency,
        })
        if err != nil {
            o.refund(userID, breakdown.FinalAmount, res.Ref)
            return model.JoinReply{}, fmt.Errorf("book ticket: %w", err)
        }
        participant.PaymentStatus = model.PaymentCompleted
        participant.TicketID = ticketID
    }
    reply := model.JoinReply{
        UserID:        userID,
        Seat:          seat,
        SeatIndex:     seatIdx,
        Breakdown:     breakdown,
        PaymentStatus: participant.PaymentStatus,
    }

    var completed bool
    var committed model.JoinReply
    err = o.swap(ctx, s, func(cur *model.InviteSession) error {
        if r, ok := cur.JoinReplies[idemKey]; ok {
            // Another instance committed this key between our read and
            // the CAS.  The charge was deduped on the key, so the money
            // belongs to the committed participant.
            committed = r
            return errJoinCommitted
        }
        if err := o.joinable(cur); err != nil {
            return err
        }
        if cur.SeatTaken(seat.Number) {
            // Only possible when the guard was bypassed by another
            // instance; give the seat up rather than double-assign.
            return pricing.ErrSeatsExhausted
        }
        cur.Participants = append(cur.Participants, participant)
        if participant.PaymentStatus == model.PaymentCompleted {
            cur.PaidAmount += participant.Amount
        }
        if cur.JoinReplies == nil {
            cur.JoinReplies = make(map[string]model.JoinReply)
        }
        cur.JoinReplies[idemKey] = reply
        completed = cur.AvailableSlots() == 0 && cur.AllPaid()
        if completed {
            cur.Status = model.StatusCompleted
        } else {
            cur.Status = model.StatusActive
        }
        return nil
    })
    if err != nil {
        if errors.Is(err, errJoinCommitted) {
            // Void only our duplicate ticket; a zero refund keeps the
            // shared charge with the participant that won the CAS.
            if participant.TicketID != "" {
                o.compensateTicket(participant.TicketID, 0)
            }
            return committed, nil
        }
        // The charge succeeded but the seat could not be committed.
        if participant.PaymentStatus == model.PaymentCompleted {
            o.compensateTicket(participant.TicketID, participant.Amount)
        } else {
            o.refund(userID, participant.Amount, participant.PaymentRef)
        }
        return model.JoinReply{}, err
    }

    o.chatJoin(s.ID, userID, map[string]interface{}{
        "event":       "participant_joined",
        "seat_number": seat.Number,
    })
    o.events.Publish(model.Event{
        Type:           model.EventParticipantJoined,
        InviteID:       s.ID,
        AvailableSlots: s.AvailableSlots(),
        UserID:         userID,
        SeatNumber:     seat.Number,
    })
    if completed {
        o.finishCompleted(s)
    }
    return reply, nil
}

// ConfirmJoin finalizes a participant whose payment was completed by the
// caller's own gateway flow.  Confirming an already-completed
// participant is a no-op.
func (o *Orchestrator) ConfirmJoin(ctx context.Context, inviteID string, userID uint64, ticketID string, amount int64) error {
    if err := o.guard.AcquireCtx(ctx, inviteID); err != nil {
        return err
    }
    defer o.guard.Release(inviteID)

    s, err := o.load(ctx, inviteID)
    if err != nil {
        return err
    }
    var completed bool
    err = o.swap(ctx, s, func(cur *model.InviteSession) error {
        idx := cur.FindParticipant(userID)
        if idx < 0 {
            return ErrNotAParticipant
        }
        p := &cur.Participants[idx]
        if p.PaymentStatus == model.PaymentCompleted {
            if p.TicketID == "" {
                p.TicketID = ticketID
            }
            return nil
        }
        p.PaymentStatus = model.PaymentCompleted
        p.TicketID = ticketID
        if amount > 0 {
            p.Amount = amount
        }
        cur.PaidAmount += p.Amount
        completed = cur.AvailableSlots() == 0 && cur.AllPaid()
        if completed {
            cur.Status = model.StatusCompleted
        }
        return nil
    })
    if err != nil {
        return err
    }
    if completed {
        o.finishCompleted(s)
    }
    return nil
}

// Leave removes a non-host participant, refunds their ticket and reopens
// their seat.  The published participant_left event carries the released
// seat number and its listed price.
func (o *Orchestrator) Leave(ctx context.Context, inviteID string, userID uint64) error {
    if err := o.guard.AcquireCtx(ctx, inviteID); err != nil {
        return err
    }
    defer o.guard.Release(inviteID)

    s, err := o.load(ctx, inviteID)
    if err != nil {
        return err
    }
    if err := statusError(s); err != nil {
        return err
    }
    idx := s.FindParticipant(userID)
    if idx < 0 {
        return ErrNotAParticipant
    }
    if s.Participants[idx].Role == model.RoleHost {
        return ErrHostCannotLeave
    }

    // Win the CAS before touching the ledger: once the participant is
    // removed the refund cannot be left counted in PaidAmount by an
    // exhausted retry, and a failed refund is retried out-of-band.
    var removed model.Participant
    err = o.swap(ctx, s, func(cur *model.InviteSession) error {
        if err := statusError(cur); err != nil {
            return err
        }
        i := cur.FindParticipant(userID)
        if i < 0 {
            return ErrNotAParticipant
        }
        p := cur.Participants[i]
        if p.Role == model.RoleHost {
            return ErrHostCannotLeave
        }
        removed = p
        cur.Participants = append(cur.Participants[:i], cur.Participants[i+1:]...)
        if p.PaymentStatus == model.PaymentCompleted {
            cur.PaidAmount -= p.Amount
        }
        for k, reply := range cur.JoinReplies {
            if reply.UserID == userID {
                delete(cur.JoinReplies, k)
            }
        }
        if len(cur.Participants) <= 1 {
            cur.Status = model.StatusPending
        } else {
            cur.Status = model.StatusActive
        }
        return nil
    })
    if err != nil {
        return err
    }
    if removed.PaymentStatus == model.PaymentCompleted {
        if err := o.tickets.CancelTicket(ctx, removed.TicketID, removed.Amount); err != nil {
            log.Printf("orchestrator: refund ticket %s for user %d failed: %v", removed.TicketID, userID, err)
            o.retryTicketCancel(removed.TicketID, removed.Amount)
        }
    }
    releasedSeat := s.RequestedSeats[removed.SeatIndex]

    o.chatLeave(s.ID, userID, map[string]interface{}{
        "event":       "participant_left",
        "seat_number": releasedSeat.Number,
    })
    o.events.Publish(model.Event{
        Type:              model.EventParticipantLeft,
        InviteID:          s.ID,
        AvailableSlots:    s.AvailableSlots(),
        UserID:            userID,
        ReleasedSeat:      releasedSeat.Number,
        ReleasedSeatPrice: releasedSeat.Price,
    })
    return nil
}

// Cancel terminates the session and fully unwinds every remaining
// participant.  A repeated cancel is a no-op.  callerID 0 is the
// operator/scheduler bypass; otherwise only the host may cancel.
func (o *Orchestrator) Cancel(ctx context.Context, inviteID string, callerID uint64) error {
    return o.terminate(ctx, inviteID, callerID, model.StatusCancelled)
}

// Expire transitions a non-terminal session to EXPIRED, performing the
// same unwind as Cancel.  Invoked by the expiration scheduler; a
// concurrent double expiry loses the CAS and becomes a no-op.
func (o *Orchestrator) Expire(ctx context.Context, inviteID string) error {
    return o.terminate(ctx, inviteID, 0, model.StatusExpired)
}

func (o *Orchestrator) terminate(ctx context.Context, inviteID string, callerID uint64, target string) error {
    if err := o.guard.AcquireCtx(ctx, inviteID); err != nil {
        return err
    }
    defer o.guard.Release(inviteID)

    s, err := o.load(ctx, inviteID)
    if err != nil {
        return err
    }
    switch s.Status {
    case target:
        return nil // already terminal in the requested state
    case model.StatusCompleted:
        return ErrInviteCompleted
    case model.StatusCancelled:
        return ErrInviteCancelled
    case model.StatusExpired:
        return ErrInviteExpired
    }
    if callerID != 0 && callerID != s.HostUserID {
        return ErrNotHost
    }

    // Snapshot the participants to unwind, then win the CAS before
    // touching any external system so a concurrent terminate cannot
    // cause a double refund.
    unwind := append([]model.Participant(nil), s.Participants...)
    err = o.swap(ctx, s, func(cur *model.InviteSession) error {
        switch cur.Status {
        case target:
            unwind = nil
            return nil
        case model.StatusCompleted:
            return ErrInviteCompleted
        case model.StatusCancelled:
            return ErrInviteCancelled
        case model.StatusExpired:
            return ErrInviteExpired
        }
        unwind = append([]model.Participant(nil), cur.Participants...)
        cur.Participants = nil
        cur.PaidAmount = 0
        cur.JoinReplies = nil
        cur.Status = target
        return nil
    })
    if err != nil {
        return err
    }
    for _, p := range unwind {
        if p.PaymentStatus == model.PaymentCompleted {
            if err := o.tickets.CancelTicket(ctx, p.TicketID, p.Amount); err != nil {
                // The session is already terminal; retry out-of-band
                // rather than resurrecting it.
                log.Printf("orchestrator: refund ticket %s for user %d failed: %v", p.TicketID, p.UserID, err)
                o.retryTicketCancel(p.TicketID, p.Amount)
            }
        }
        o.chatLeave(s.ID, p.UserID, map[string]interface{}{
            "event": "group_terminated",
        })
    }
    if len(unwind) > 0 || s.Status == target {
        o.events.Publish(model.Event{
            Type:           model.EventInviteCancelled,
            InviteID:       s.ID,
            AvailableSlots: s.TotalSlots,
            Reason:         strings.ToLower(target),
        })
    }
    return nil
}

// Get returns the current session state.
func (o *Orchestrator) Get(ctx context.Context, inviteID string) (*model.InviteSession, error) {
    return o.load(ctx, inviteID)
}

// ListByUser returns every session the user participates in.
func (o *Orchestrator) ListByUser(ctx context.Context, userID uint64) ([]*model.InviteSession, error) {
    return o.store.ListByUser(ctx, userID)
}

// ListOpen returns joinable sessions matching the filters.
func (o *Orchestrator) ListOpen(ctx context.Context, f store.Filters) ([]*model.InviteSession, error) {
    return o.store.ListOpen(ctx, f)
}

// load fetches a session, mapping store.ErrNotFound.
func (o *Orchestrator) load(ctx context.Context, inviteID string) (*model.InviteSession, error) {
    s, err := o.store.Get(ctx, inviteID)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) {
            return nil, ErrInviteNotFound
        }
        return nil, err
    }
    return s, nil
}

// joinable validates that a session can accept a join right now.
func (o *Orchestrator) joinable(s *model.InviteSession) error {
    if err := statusError(s); err != nil {
        return err
    }
    if !o.now().Before(s.ExpiresAt) {
        return ErrInviteExpired
    }
    return nil
}

// statusError maps a terminal status to its sentinel.
func statusError(s *model.InviteSession) error {
    switch s.Status {
    case model.StatusCompleted:
        return ErrInviteCompleted
    case model.StatusCancelled:
        return ErrInviteCancelled
    case model.StatusExpired:
        return ErrInviteExpired
    }
    return nil
}

// swap applies mutate to s and writes it back with CompareAndSwap,
// retrying a bounded number of times on version conflicts with a fresh
// read each attempt.  On success s holds the committed state.
func (o *Orchestrator) swap(ctx context.Context, s *model.InviteSession, mutate func(*model.InviteSession) error) error {
    cur := s
    for attempt := 0; attempt <= o.casRetries; attempt++ {
        working := cur.Clone()
        if err := mutate(working); err != nil {
            return err
        }
        err := o.store.CompareAndSwap(ctx, working.ID, cur.Version, working)
        if err == nil {
            *s = *working
            return nil
        }
        if !errors.Is(err, store.ErrVersionConflict) {
            if errors.Is(err, store.ErrNotFound) {
                return ErrInviteNotFound
            }
            return err
        }
        fresh, err := o.load(ctx, s.ID)
        if err != nil {
            return err
        }
        cur = fresh
    }
    return ErrConflict
}

// charge runs a charge bounded by the payment timeout.  Declines and
// timeouts both surface as ErrPaymentFailed.
func (o *Orchestrator) charge(ctx context.Context, userID uint64, amount int64, idemKey string) (ChargeResult, error) {
    cctx, cancel := context.WithTimeout(ctx, o.paymentTimeout)
    defer cancel()
    res, err := o.payments.Charge(cctx, userID, amount, idemKey)
    if err != nil {
        return ChargeResult{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
    }
    return res, nil
}

// refund compensates a captured charge that never became a committed
// seat.  Failures are logged; there is no seat to release.
func (o *Orchestrator) refund(userID uint64, amount int64, ref string) {
    ctx, cancel := context.WithTimeout(context.Background(), o.paymentTimeout)
    defer cancel()
    if err := o.payments.Refund(ctx, userID, amount, ref); err != nil {
        log.Printf("orchestrator: refund of %d for user %d (ref %s) failed: %v", amount, userID, ref, err)
    }
}

// compensateTicket cancels a ticket booked for a seat that was never
// committed to the session.
func (o *Orchestrator) compensateTicket(ticketID string, amount int64) {
    ctx, cancel := context.WithTimeout(context.Background(), o.paymentTimeout)
    defer cancel()
    if err := o.tickets.CancelTicket(ctx, ticketID, amount); err != nil {
        log.Printf("orchestrator: compensating cancel of ticket %s failed: %v", ticketID, err)
    }
}

// finishCompleted publishes the completion event and fires the hook.
func (o *Orchestrator) finishCompleted(s *model.InviteSession) {
    o.events.Publish(model.Event{
        Type:     model.EventGroupCompleted,
        InviteID: s.ID,
    })
    o.chatSystem(s.ID, map[string]interface{}{"event": "group_completed"})
    if o.onCompleted != nil {
        o.onCompleted(s.Clone())
    }
}

// chatJoin adds the user to the invite's chat room and posts a system
// message.  Chat failures never roll back a booking; they are retried
// asynchronously and logged.
func (o *Orchestrator) chatJoin(roomID string, userID uint64, data map[string]interface{}) {
    o.asyncChat(fmt.Sprintf("join room %s user %d", roomID, userID), func(ctx context.Context) error {
        if err := o.chat.JoinRoom(ctx, roomID, userID); err != nil {
            return err
        }
        return o.chat.PostSystemMessage(ctx, roomID, "system", data)
    })
}

// chatLeave removes the user from the chat room and posts a system
// message, with the same best-effort semantics as chatJoin.
func (o *Orchestrator) chatLeave(roomID string, userID uint64, data map[string]interface{}) {
    o.asyncChat(fmt.Sprintf("leave room %s user %d", roomID, userID), func(ctx context.Context) error {
        if err := o.chat.LeaveRoom(ctx, roomID, userID); err != nil {
            return err
        }
        return o.chat.PostSystemMessage(ctx, roomID, "system", data)
    })
}

func (o *Orchestrator) chatSystem(roomID string, data map[string]interface{}) {
    o.asyncChat("system message "+roomID, func(ctx context.Context) error {
        return o.chat.PostSystemMessage(ctx, roomID, "system", data)
    })
}

// asyncChat runs fn with bounded retries in the background.  The first
// attempt is synchronous-ish (still off the request path) so tests can
// observe the common success case quickly.
func (o *Orchestrator) asyncChat(what string, fn func(ctx context.Context) error) {
    go func() {
        for attempt := 1; attempt <= chatRetryAttempts; attempt++ {
            ctx, cancel := context.WithTimeout(context.Background(), o.paymentTimeout)
            err := fn(ctx)
            cancel()
            if err == nil {
                return
            }
            log.Printf("orchestrator: chat %s failed (attempt %d/%d): %v", what, attempt, chatRetryAttempts, err)
            if attempt < chatRetryAttempts {
                time.Sleep(chatRetryDelay)
            }
        }
    }()
}

// retryTicketCancel retries a failed refund out-of-band.
func (o *Orchestrator) retryTicketCancel(ticketID string, amount int64) {
    go func() {
        for attempt := 1; attempt <= chatRetryAttempts; attempt++ {
            time.Sleep(chatRetryDelay)
            ctx, cancel := context.WithTimeout(context.Background(), o.paymentTimeout)
            err := o.tickets.CancelTicket(ctx, ticketID, amount)
            cancel()
            if err == nil {
                return
            }
            log.Printf("orchestrator: retry cancel ticket %s failed (attempt %d/%d): %v", ticketID, attempt, chatRetryAttempts, err)
        }
    }()
}
