package model

// Event types published on an invite's realtime channel.  The names are
// the wire-level tags consumed by browsing clients.
const (
    EventParticipantJoined = "participant_joined"
    EventParticipantLeft   = "participant_left"
    EventGroupCompleted    = "group_completed"
    EventInviteCancelled   = "invite_cancelled"
)

// Event is a session-state-change notification.  Delivery is
// at-least-once; subscribers treat events as hints and reconcile against
// a GET of the session when counts look suspicious or after a reconnect.
//
// ReleasedSeat and ReleasedSeatPrice are only set on participant_left so
// browsing clients can show the reopened seat without refetching.
// Reason is only set on invite_cancelled and distinguishes a host cancel
// ("cancelled") from a TTL expiry ("expired").
type Event struct {
    Type              string `json:"type"`
    InviteID          string `json:"invite_id"`
    AvailableSlots    int    `json:"available_slots"`
    UserID            uint64 `json:"user_id,omitempty"`
    SeatNumber        string `json:"seat_number,omitempty"`
    ReleasedSeat      string `json:"released_seat,omitempty"`
    ReleasedSeatPrice int64  `json:"released_seat_price,omitempty"`
    Reason            string `json:"reason,omitempty"`
}
