package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// SessionIdentity is what the auth middleware learned from a verified session token.
type SessionIdentity struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	SessionID uuid.UUID
}

func SetIdentityContext(ctx context.Context, identity SessionIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func GetIdentityFromContext(ctx context.Context) (SessionIdentity, bool) {
	identity, ok := ctx.Value(identityKey).(SessionIdentity)
	return identity, ok
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}
