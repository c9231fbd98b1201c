package utils

import "strings"

// NormalizeEmail is applied before every lookup and write keyed by email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
