package entity

import "time"

type UserRole string

const (
	RoleParticipant UserRole = "participant"
	RoleStaff       UserRole = "staff"
	RoleOrganizer   UserRole = "organizer"
	RoleAdmin       UserRole = "admin"
)

// Elevated roles may run administrative operations.
func (r UserRole) Elevated() bool {
	return r == RoleAdmin || r == RoleOrganizer
}

// User is the cross-event identity, unique by normalized email.
type User struct {
	BaseNoDelete
	Email         string     `db:"email"`
	Name          string     `db:"name"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Role          UserRole   `db:"role"`
	EmailVerified *time.Time `db:"email_verified"`
	LastLogin     *time.Time `db:"last_login"`
	PasswordHash  *string    `db:"password"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
