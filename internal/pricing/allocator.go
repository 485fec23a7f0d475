// Package pricing implements seat allocation and price computation for
// invite sessions.  Everything here is pure: given the same session
// state the same seat and the same breakdown are returned, and no state
// is mutated.  All mutation happens in the orchestrator.
package pricing

import (
    "errors"
    "math"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// ErrSeatsExhausted is returned when every seat in the session's plan is
// already assigned.  Callers check AvailableSlots first, so hitting this
// indicates a stale read that the caller should treat as "seat gone".
var ErrSeatsExhausted = errors.New("no unassigned seats remain")

// Surcharge rates applied to the discounted price.  These match the
// displayed breakdown contract: each component is rounded independently,
// never the sum.
const (
    convenienceFeeRate = 0.05
    taxRate            = 0.18
)

// NextSeat scans the session's seat plan in its fixed stored order and
// returns the first seat not assigned to any current participant, along
// with its index in the plan.  The stored order is the allocation
// priority, so a seat released by a leaver is re-offered before any
// later seat.
func NextSeat(s *model.InviteSession) (model.Seat, int, error) {
    for i, seat := range s.RequestedSeats {
        if !s.SeatTaken(seat.Number) {
            return seat, i, nil
        }
    }
    return model.Seat{}, 0, ErrSeatsExhausted
}

// PriceFor computes the itemized price for one seat.  The coupon's
// discount percentage was resolved once at session creation; a nil
// coupon means no discount.  Convenience fee and tax are rounded
// half-up to the nearest currency unit independently.
func PriceFor(seat model.Seat, coupon *model.Coupon) model.PriceBreakdown {
    original := float64(seat.Price)
    discount := 0.0
    if coupon != nil {
        discount = original * coupon.DiscountPercentage / 100
    }
    discounted := original - discount
    fee := roundHalfUp(discounted * convenienceFeeRate)
    tax := roundHalfUp(discounted * taxRate)
    return model.PriceBreakdown{
        OriginalPrice:   seat.Price,
        DiscountAmount:  roundHalfUp(discount),
        DiscountedPrice: roundHalfUp(discounted),
        ConvenienceFee:  fee,
        Tax:             tax,
        FinalAmount:     roundHalfUp(discounted) + fee + tax,
    }
}

// roundHalfUp rounds to the nearest whole currency unit, with .5 always
// rounding up.
func roundHalfUp(x float64) int64 {
    return int64(math.Floor(x + 0.5))
}
