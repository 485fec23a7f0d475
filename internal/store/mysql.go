package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "strings"
    "time"

    "github.com/iliyamo/group-invite-service/internal/model"
)

// MySQL is the production InviteStore.  Sessions are persisted in the
// invite_sessions table as a JSON state blob next to the columns used
// for querying (host, status, show context, expiry) and the version
// column that implements compare-and-swap.  Participant membership is
// mirrored into invite_participants so ListByUser stays a plain join
// instead of a JSON scan.  All timestamps are stored in UTC.
//
// Schema:
//
//  CREATE TABLE invite_sessions (
//      invite_id    VARCHAR(36) PRIMARY KEY,
//      host_user_id BIGINT UNSIGNED NOT NULL,
//      movie_id     BIGINT UNSIGNED NOT NULL,
//      theater_id   BIGINT UNSIGNED NOT NULL,
//      showtime_id  BIGINT UNSIGNED NOT NULL,
//      status       VARCHAR(16) NOT NULL,
//      expires_at   DATETIME NOT NULL,
//      version      BIGINT NOT NULL,
//      state        JSON NOT NULL,
//      created_at   DATETIME NOT NULL,
//      updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
//      KEY idx_status_expires (status, expires_at),
//      KEY idx_browse (movie_id, theater_id, showtime_id)
//  );
//
//  CREATE TABLE invite_participants (
//      invite_id VARCHAR(36) NOT NULL,
//      user_id   BIGINT UNSIGNED NOT NULL,
//      PRIMARY KEY (invite_id, user_id),
//      KEY idx_user (user_id),
//      CONSTRAINT fk_participant_invite FOREIGN KEY (invite_id)
//          REFERENCES invite_sessions (invite_id) ON DELETE CASCADE
//  );
type MySQL struct {
    db *sql.DB
}

// NewMySQL returns a MySQL store bound to the given database.
func NewMySQL(db *sql.DB) *MySQL { return &MySQL{db: db} }

const dbTimeLayout = "2006-01-02 15:04:05"

// Create inserts a new session at version 1 along with its participant
// mirror rows.  ErrAlreadyExists is returned on a duplicate ID.
func (r *MySQL) Create(ctx context.Context, s *model.InviteSession) error {
    s.Version = 1
    state, err := json.Marshal(s)
    if err != nil {
        return err
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `INSERT INTO invite_sessions
               (invite_id, host_user_id, movie_id, theater_id, showtime_id, status, expires_at, version, state, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, q,
        s.ID, s.HostUserID, s.MovieID, s.TheaterID, s.ShowtimeID, s.Status,
        s.ExpiresAt.UTC().Format(dbTimeLayout), s.Version, state,
        s.CreatedAt.UTC().Format(dbTimeLayout),
    ); err != nil {
        if isDuplicateKey(err) {
            return ErrAlreadyExists
        }
        return err
    }
    if err := r.replaceParticipantsTx(ctx, tx, s); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Get loads the session state blob and its current version.
func (r *MySQL) Get(ctx context.Context, id string) (*model.InviteSession, error) {
    const q = `SELECT state, version FROM invite_sessions WHERE invite_id = ?`
    var state []byte
    var version int64
    if err := r.db.QueryRowContext(ctx, q, id).Scan(&state, &version); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }
    var s model.InviteSession
    if err := json.Unmarshal(state, &s); err != nil {
        return nil, err
    }
    s.Version = version
    return &s, nil
}

// CompareAndSwap writes the session back guarded by the version column.
// The UPDATE matches zero rows either because the session is missing or
// because the version moved; the two are told apart with a follow-up
// existence check so callers can retry conflicts but not ghosts.
func (r *MySQL) CompareAndSwap(ctx context.Context, id string, expected int64, s *model.InviteSession) error {
    s.Version = expected + 1
    state, err := json.Marshal(s)
    if err != nil {
        return err
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `UPDATE invite_sessions
               SET status = ?, expires_at = ?, version = ?, state = ?
               WHERE invite_id = ? AND version = ?`
    res, err := tx.ExecContext(ctx, q,
        s.Status, s.ExpiresAt.UTC().Format(dbTimeLayout), s.Version, state, id, expected,
    )
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists int
        if err := tx.QueryRowContext(ctx, `SELECT 1 FROM invite_sessions WHERE invite_id = ?`, id).Scan(&exists); err != nil {
            if err == sql.ErrNoRows {
                return ErrNotFound
            }
            return err
        }
        return ErrVersionConflict
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM invite_participants WHERE invite_id = ?`, id); err != nil {
        return err
    }
    if err := r.replaceParticipantsTx(ctx, tx, s); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// replaceParticipantsTx bulk-inserts the participant mirror rows for the
// session.  An empty participant set inserts nothing.
func (r *MySQL) replaceParticipantsTx(ctx context.Context, tx *sql.Tx, s *model.InviteSession) error {
    if len(s.Participants) == 0 {
        return nil
    }
    query := `INSERT INTO invite_participants (invite_id, user_id) VALUES `
    args := make([]interface{}, 0, len(s.Participants)*2)
    for i, p := range s.Participants {
        if i > 0 {
            query += ","
        }
        query += "(?, ?)"
        args = append(args, s.ID, p.UserID)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// ListByUser returns every session the user participates in, newest first.
func (r *MySQL) ListByUser(ctx context.Context, userID uint64) ([]*model.InviteSession, error) {
    const q = `SELECT s.state, s.version
               FROM invite_sessions s
               JOIN invite_participants p ON p.invite_id = s.invite_id
               WHERE p.user_id = ?
               ORDER BY s.created_at DESC, s.invite_id`
    return r.querySessions(ctx, q, userID)
}

// ListOpen returns joinable sessions matching the filters, newest first.
func (r *MySQL) ListOpen(ctx context.Context, f Filters) ([]*model.InviteSession, error) {
    var conds []string
    var args []interface{}
    if !f.IncludeClosed {
        conds = append(conds, `status IN ('PENDING','ACTIVE')`)
    }
    if f.MovieID != 0 {
        conds = append(conds, `movie_id = ?`)
        args = append(args, f.MovieID)
    }
    if f.TheaterID != 0 {
        conds = append(conds, `theater_id = ?`)
        args = append(args, f.TheaterID)
    }
    if f.ShowtimeID != 0 {
        conds = append(conds, `showtime_id = ?`)
        args = append(args, f.ShowtimeID)
    }
    q := `SELECT state, version FROM invite_sessions`
    if len(conds) > 0 {
        q += ` WHERE ` + strings.Join(conds, " AND ")
    }
    q += ` ORDER BY created_at DESC, invite_id`
    return r.querySessions(ctx, q, args...)
}

// ListExpired returns IDs of non-terminal sessions whose expiry passed.
func (r *MySQL) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
    const q = `SELECT invite_id FROM invite_sessions
               WHERE status IN ('PENDING','ACTIVE') AND expires_at <= ?
               ORDER BY invite_id`
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format(dbTimeLayout))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

func (r *MySQL) querySessions(ctx context.Context, q string, args ...interface{}) ([]*model.InviteSession, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.InviteSession
    for rows.Next() {
        var state []byte
        var version int64
        if err := rows.Scan(&state, &version); err != nil {
            return nil, err
        }
        var s model.InviteSession
        if err := json.Unmarshal(state, &s); err != nil {
            return nil, err
        }
        s.Version = version
        out = append(out, &s)
    }
    return out, rows.Err()
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (1062).  Matching on the message keeps the driver import surface small.
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
