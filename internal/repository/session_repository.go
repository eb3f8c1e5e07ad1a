package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-registration/internal/model"
)

// SessionRepo reads the sessions table written by the external auth
// frontend.  This service never creates or deletes sessions; it only
// validates the token presented in the session cookie.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// FindActive returns the session for the given token provided it has
// not expired.  Expired or unknown tokens both yield ErrSessionNotFound
// so the caller cannot distinguish them, which keeps the auth error
// path uniform.
func (r *SessionRepo) FindActive(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT session_token, user_id, email, expires_at
		 FROM sessions
		 WHERE session_token = ? AND expires_at > UTC_TIMESTAMP()`,
		token,
	).Scan(&s.SessionToken, &s.UserID, &s.Email, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}
