package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is the stored metadata of a painter session.
type Session struct {
	ID        string
	Frames    int64
	LastMode  string
	Color     string
	Thickness int
	Closed    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRepository provides CRUD operations for session records.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, frames, last_mode, color, thickness, closed, created_at, updated_at`

// Create inserts a new session record.
func (r *SessionRepository) Create(sess *Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	if sess.LastMode == "" {
		sess.LastMode = "none"
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Frames, sess.LastMode, sess.Color, sess.Thickness, sess.Closed, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

// GetByID retrieves a session record by id.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns session records, most recently active first. Closed
// sessions are included only when all is set.
func (r *SessionRepository) List(all bool) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if !all {
		query += ` WHERE closed = 0`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateStats records the latest frame count and drawing state.
func (r *SessionRepository) UpdateStats(sess *Session) error {
	sess.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, last_mode = ?, color = ?, thickness = ?, updated_at = ?
		 WHERE id = ?`,
		sess.Frames, sess.LastMode, sess.Color, sess.Thickness, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// MarkClosed flags a session as ended. The record is kept for history.
func (r *SessionRepository) MarkClosed(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET closed = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Reopen marks a closed session as live again and resets its counters.
func (r *SessionRepository) Reopen(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET closed = 0, frames = 0, last_mode = 'none', updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// CloseAll flags every open session as ended, used at startup since live
// sessions never survive a restart.
func (r *SessionRepository) CloseAll() (int64, error) {
	result, err := r.db.Exec(`UPDATE sessions SET closed = 1 WHERE closed = 0`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes a session record.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// PruneBefore deletes closed sessions last updated before t.
func (r *SessionRepository) PruneBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE closed = 1 AND updated_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	err := row.Scan(&sess.ID, &sess.Frames, &sess.LastMode, &sess.Color, &sess.Thickness,
		&sess.Closed, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func expectOne(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
