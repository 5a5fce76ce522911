package auth

import (
	"context"

	"github.com/google/uuid"
)

type buyerIDKey struct{}

// ContextWithUserID stores the authenticated caller's id; every marketplace
// operation derives its buyer or seller identity from here, never from the
// request body.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, buyerIDKey{}, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(buyerIDKey{}).(uuid.UUID)
	return id, ok
}
