// Package store provides authoritative, versioned storage of invite
// sessions.  Every session carries a monotonically increasing version
// counter; mutations must present the version they read and stale writes
// are rejected with ErrVersionConflict.  The per-invite guard gives
// low-contention serialization in-process, the version check is the
// correctness backstop when the guard is bypassed or instances are
// distributed.
package store

import (
    "context"
    "errors"
    "time"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// ErrNotFound is returned when no session exists for the given ID.
var ErrNotFound = errors.New("invite not found")

// ErrVersionConflict is returned when a CompareAndSwap presents a stale
// version.  Callers should re-read and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrAlreadyExists is returned when creating a session whose ID is taken.
var ErrAlreadyExists = errors.New("invite already exists")

// Filters narrows ListOpen results.  Zero values match everything.
// Terminal sessions are excluded unless IncludeClosed is set.
type Filters struct {
    MovieID       uint64
    TheaterID     uint64
    ShowtimeID    uint64
    IncludeClosed bool
}

// InviteStore is the persistence contract for invite sessions.
// Implementations hand out deep copies; callers mutate their copy and
// write back through CompareAndSwap.
type InviteStore interface {
    // Create persists a new session at version 1.
    Create(ctx context.Context, s *model.InviteSession) error
    // Get returns the session with the given ID.
    Get(ctx context.Context, id string) (*model.InviteSession, error)
    // CompareAndSwap replaces the stored session if its version still
    // equals expected, bumping the version by one.  On success the
    // session's Version field is updated in place.
    CompareAndSwap(ctx context.Context, id string, expected int64, s *model.InviteSession) error
    // ListByUser returns every session the user participates in,
    // newest first.
    ListByUser(ctx context.Context, userID uint64) ([]*model.InviteSession, error)
    // ListOpen returns joinable sessions matching the filters,
    // newest first.
    ListOpen(ctx context.Context, f Filters) ([]*model.InviteSession, error)
    // ListExpired returns IDs of non-terminal sessions whose
    // expiry has passed.
    ListExpired(ctx context.Context, now time.Time) ([]string, error)
}
