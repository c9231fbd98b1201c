package entity

import (
	"time"
)

type OTPPurpose string

const (
	// OTPPurposeLogin is the numeric code mailed to a registrant.
	OTPPurposeLogin OTPPurpose = "login"
	// OTPPurposeAutoLogin is an opaque token handed out by an organizer.
	OTPPurposeAutoLogin OTPPurpose = "auto_login"
)

// OneTimeCode is single-use: Used flips to true exactly once.
type OneTimeCode struct {
	BaseSimple
	Email     string     `db:"email"`
	Code      string     `db:"code"`
	Purpose   OTPPurpose `db:"purpose"`
	ExpiresAt time.Time  `db:"expires_at"`
	Used      bool       `db:"used"`
}

// Live reports whether the code may still be consumed at now.
func (c *OneTimeCode) Live(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}
