package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// Memory is an in-process InviteStore.  It backs tests and single-node
// deployments (STORE_DRIVER=memory); production uses the MySQL store.
// All methods are safe for concurrent use and return deep copies so a
// caller can never mutate shared state except through CompareAndSwap.
type Memory struct {
    mu       sync.RWMutex
    sessions map[string]*model.InviteSession
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
    return &Memory{sessions: make(map[string]*model.InviteSession)}
}

// Create persists a new session at version 1.
func (m *Memory) Create(ctx context.Context, s *model.InviteSession) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.sessions[s.ID]; ok {
        return ErrAlreadyExists
    }
    s.Version = 1
    m.sessions[s.ID] = s.Clone()
    return nil
}

// Get returns a copy of the session with the given ID.
func (m *Memory) Get(ctx context.Context, id string) (*model.InviteSession, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    s, ok := m.sessions[id]
    if !ok {
        return nil, ErrNotFound
    }
    return s.Clone(), nil
}

// CompareAndSwap replaces the stored session when the expected version
// matches, bumping the version by one.
func (m *Memory) CompareAndSwap(ctx context.Context, id string, expected int64, s *model.InviteSession) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    cur, ok := m.sessions[id]
    if !ok {
        return ErrNotFound
    }
    if cur.Version != expected {
        return ErrVersionConflict
    }
    s.Version = expected + 1
    m.sessions[id] = s.Clone()
    return nil
}

// ListByUser returns every session the user participates in, newest first.
func (m *Memory) ListByUser(ctx context.Context, userID uint64) ([]*model.InviteSession, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    var out []*model.InviteSession
    for _, s := range m.sessions {
        if s.FindParticipant(userID) >= 0 {
            out = append(out, s.Clone())
        }
    }
    sortNewestFirst(out)
    return out, nil
}

// ListOpen returns joinable sessions matching the filters, newest first.
func (m *Memory) ListOpen(ctx context.Context, f Filters) ([]*model.InviteSession, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    var out []*model.InviteSession
    for _, s := range m.sessions {
        if !f.IncludeClosed && s.Terminal() {
            continue
        }
        if f.MovieID != 0 && s.MovieID != f.MovieID {
            continue
        }
        if f.TheaterID != 0 && s.TheaterID != f.TheaterID {
            continue
        }
        if f.ShowtimeID != 0 && s.ShowtimeID != f.ShowtimeID {
            continue
        }
        out = append(out, s.Clone())
    }
    sortNewestFirst(out)
    return out, nil
}

// ListExpired returns IDs of non-terminal sessions whose expiry passed.
func (m *Memory) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    var ids []string
    for id, s := range m.sessions {
        if !s.Terminal() && !s.ExpiresAt.After(now) {
            ids = append(ids, id)
        }
    }
    sort.Strings(ids)
    return ids, nil
}

func sortNewestFirst(list []*model.InviteSession) {
    sort.Slice(list, func(i, j int) bool {
        if list[i].CreatedAt.Equal(list[j].CreatedAt) {
            return list[i].ID < list[j].ID
        }
        return list[i].CreatedAt.After(list[j].CreatedAt)
    })
}
