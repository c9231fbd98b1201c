package entity

import "github.com/google/uuid"

// Registration is a person's enrollment in one event. Owned by the
// registration subsystem; authentication only reads it.
type Registration struct {
	Base
	EventID   uuid.UUID `db:"event_id"`
	EventName string    `db:"event_name"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	BadgeCode *string   `db:"badge_code"`
}

func (r *Registration) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	default:
		return r.FirstName + " " + r.LastName
	}
}
