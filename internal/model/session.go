package model

import "time"

// Session is a server-side login session issued by the external auth
// frontend and validated here via the session cookie.  The raw token is
// the lookup key, matching the schema the auth frontend writes.
//
// Fields:
//  SessionToken – opaque token carried in the session cookie.
//  UserID       – owning user id.
//  Email        – user email, denormalized for registration lookups.
//  ExpiresAt    – expiry; sessions past this instant are rejected.
type Session struct {
	SessionToken string    // sessions.session_token
	UserID       string    // sessions.user_id
	Email        string    // sessions.email
	ExpiresAt    time.Time // sessions.expires_at
}

// Principal is the authenticated identity produced by either leg of the
// credential resolver (session cookie or bearer JWT).  Handlers only
// ever see this type, never the credential that produced it.
type Principal struct {
	UserID string
	Email  string
}
