package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is the bookkeeping row for an issued session token. Token holds
// the token's jti, so a row can be revoked without storing the token.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Token     uuid.UUID  `db:"token"`
	UserAgent *string    `db:"user_agent"`
	IPAddress *string    `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Purgeable reports whether the row expired more than grace before now.
func (s *Session) Purgeable(now time.Time, grace time.Duration) bool {
	return s.ExpiresAt.Before(now.Add(-grace))
}
