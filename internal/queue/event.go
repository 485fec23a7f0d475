// Package queue defines message payloads exchanged over the message broker.
package queue

// InviteCompletedEvent is published when an invite session fills every
// seat and all participants have paid.  It carries enough information
// for downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type InviteCompletedEvent struct {
    InviteID    string   `json:"invite_id"`
    HostUserID  uint64   `json:"host_user_id"`
    MovieID     uint64   `json:"movie_id"`
    TheaterID   uint64   `json:"theater_id"`
    ScreenID    uint64   `json:"screen_id"`
    ShowtimeID  uint64   `json:"showtime_id"`
    ShowDate    string   `json:"show_date"`
    ShowTime    string   `json:"show_time"`
    SeatNumbers []string `json:"seats"`
    Slots       int      `json:"slots"`
    TotalAmount int64    `json:"total_amount"`
    PaidAmount  int64    `json:"paid_amount"`
    Currency    string   `json:"currency"`
    CompletedAt string   `json:"completed_at"`
}
