package entity

import "github.com/google/uuid"

const ProviderEmailOTP = "email-otp"

// Account links a user to the login method that authenticated them.
type Account struct {
	BaseSimple
	UserID            uuid.UUID `db:"user_id"`
	Provider          string    `db:"provider"`
	ProviderAccountID string    `db:"provider_account_id"`
}
