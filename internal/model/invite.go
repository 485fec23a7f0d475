package model

import "time"

// Invite session statuses.  A session only ever moves forward through
// these states; COMPLETED, CANCELLED and EXPIRED are terminal and a
// session is never resurrected out of them.
const (
    StatusPending   = "PENDING"   // created, only the host occupies a seat
    StatusActive    = "ACTIVE"    // at least one member has joined
    StatusCompleted = "COMPLETED" // every slot filled and paid
    StatusCancelled = "CANCELLED" // terminated by the host (or an operator)
    StatusExpired   = "EXPIRED"   // TTL elapsed before completion
)

// Participant payment statuses.  PROCESSING means the seat is held and
// counts against available slots while an external payment flow is still
// in flight; COMPLETED means the charge was captured and a ticket exists.
const (
    PaymentProcessing = "PROCESSING"
    PaymentCompleted  = "COMPLETED"
)

// Participant roles.  The host created the session and always occupies
// seat index 0 as the first participant.
const (
    RoleHost   = "HOST"
    RoleMember = "MEMBER"
)

// Seat describes one seat in the fixed seat plan of an invite session.
//
// Fields:
//  Number – seat label unique within the screen (e.g. "C12").
//  Row    – row label (e.g. "C").
//  Type   – seat class (e.g. "REGULAR", "PREMIUM").
//  Price  – listed price in whole currency units.
type Seat struct {
    Number string `json:"seat_number"` // requested_seats[i].seat_number
    Row    string `json:"seat_row"`    // requested_seats[i].seat_row
    Type   string `json:"seat_type"`   // requested_seats[i].seat_type
    Price  int64  `json:"price"`       // requested_seats[i].price
}

// Coupon carries an already-resolved discount.  It is fixed when the
// session is created and never re-validated afterwards.
type Coupon struct {
    Code               string  `json:"coupon_code"`         // coupon code as entered by the host
    DiscountPercentage float64 `json:"discount_percentage"` // resolved percentage, 0..100
}

// Participant is one user occupying one seat of an invite session.
//
// Fields:
//  UserID        – user occupying the seat.
//  SeatNumber    – label of the seat assigned to this user.
//  SeatIndex     – index of the seat within the session's seat plan.
//  PaymentStatus – PROCESSING or COMPLETED.
//  Amount        – final charged amount for this seat.
//  Role          – HOST or MEMBER.
//  TicketID      – ticket issued by the ticket ledger, set once booked.
//  BookingID     – external booking reference, if any.
//  PaymentRef    – opaque reference returned by the payment coordinator.
//  JoinedAt      – when the seat was claimed.
type Participant struct {
    UserID        uint64    `json:"user_id"`
    SeatNumber    string    `json:"seat_assigned"`
    SeatIndex     int       `json:"seat_index"`
    PaymentStatus string    `json:"payment_status"`
    Amount        int64     `json:"amount"`
    Role          string    `json:"role"`
    TicketID      string    `json:"ticket_id,omitempty"`
    BookingID     string    `json:"booking_id,omitempty"`
    PaymentRef    string    `json:"payment_ref,omitempty"`
    JoinedAt      time.Time `json:"joined_at"`
}

// PriceBreakdown is the itemized price quoted to a joiner for one seat.
// ConvenienceFee and Tax are each rounded half-up to the nearest currency
// unit independently; FinalAmount is their sum with the discounted price.
type PriceBreakdown struct {
    OriginalPrice   int64 `json:"original_price"`
    DiscountAmount  int64 `json:"discount_amount"`
    DiscountedPrice int64 `json:"discounted_price"`
    ConvenienceFee  int64 `json:"convenience_fee"`
    Tax             int64 `json:"tax"`
    FinalAmount     int64 `json:"final_amount"`
}

// JoinReply is the outcome of a join request.  Replies are cached on the
// session keyed by idempotency key so a retried request returns the
// original result instead of charging twice.
type JoinReply struct {
    UserID        uint64         `json:"user_id"`
    Seat          Seat           `json:"seat"`
    SeatIndex     int            `json:"seat_index"`
    Breakdown     PriceBreakdown `json:"price_breakdown"`
    PaymentStatus string         `json:"payment_status"`
}

// InviteSession is one host-initiated collaborative booking attempt.  The
// show context is a read-only snapshot taken at creation time; the seat
// plan is fixed at creation and its order is the allocation priority.
// Participants and the derived slot count are the only mutable state.
//
// Version is the optimistic-lock counter maintained by the store.  Every
// mutation must present the version it read; stale writes are rejected.
type InviteSession struct {
    ID         string `json:"invite_id"`
    HostUserID uint64 `json:"host_user_id"`

    MovieID    uint64 `json:"movie_id"`
    TheaterID  uint64 `json:"theater_id"`
    ScreenID   uint64 `json:"screen_id"`
    ShowtimeID uint64 `json:"showtime_id"`
    ShowDate   string `json:"show_date"`
    ShowTime   string `json:"show_time"`

    RequestedSeats []Seat        `json:"requested_seats"`
    TotalSlots     int           `json:"total_slots_requested"`
    Participants   []Participant `json:"participants"`
    Coupon         *Coupon       `json:"coupon_used,omitempty"`

    Status      string    `json:"status"`
    TotalAmount int64     `json:"total_amount"`
    PaidAmount  int64     `json:"paid_amount"`
    Currency    string    `json:"currency"`
    CreatedAt   time.Time `json:"created_at"`
    ExpiresAt   time.Time `json:"expires_at"`

    // JoinReplies caches join outcomes by idempotency key.
    JoinReplies map[string]JoinReply `json:"join_replies,omitempty"`

    Version int64 `json:"-"`
}

// AvailableSlots derives the remaining capacity from the participant set.
// Both PROCESSING and COMPLETED participants occupy a slot.
func (s *InviteSession) AvailableSlots() int {
    return s.TotalSlots - len(s.Participants)
}

// SeatTaken reports whether the given seat number is assigned to any
// current participant.
func (s *InviteSession) SeatTaken(number string) bool {
    for i := range s.Participants {
        if s.Participants[i].SeatNumber == number {
            return true
        }
    }
    return false
}

// FindParticipant returns the index of the participant with the given
// user ID, or -1 when the user is not part of the session.
func (s *InviteSession) FindParticipant(userID uint64) int {
    for i := range s.Participants {
        if s.Participants[i].UserID == userID {
            return i
        }
    }
    return -1
}

// AllPaid reports whether every current participant has a completed
// payment.  A full session only becomes COMPLETED once this holds.
func (s *InviteSession) AllPaid() bool {
    for i := range s.Participants {
        if s.Participants[i].PaymentStatus != PaymentCompleted {
            return false
        }
    }
    return true
}

// Terminal reports whether the session is in a terminal status.
func (s *InviteSession) Terminal() bool {
    switch s.Status {
    case StatusCompleted, StatusCancelled, StatusExpired:
        return true
    }
    return false
}

// Clone returns a deep copy of the session.  Stores hand out clones so
// callers can mutate freely and write back through CompareAndSwap.
func (s *InviteSession) Clone() *InviteSession {
    cp := *s
    cp.RequestedSeats = append([]Seat(nil), s.RequestedSeats...)
    cp.Participants = append([]Participant(nil), s.Participants...)
    if s.Coupon != nil {
        c := *s.Coupon
        cp.Coupon = &c
    }
    if s.JoinReplies != nil {
        cp.JoinReplies = make(map[string]JoinReply, len(s.JoinReplies))
        for k, v := range s.JoinReplies {
            cp.JoinReplies[k] = v
        }
    }
    return &cp
}
