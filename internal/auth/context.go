package auth

import (
	"context"

	"github.com/bracketlab/autodraft/pkg/models"
)

type contextKey string

const userContextKey contextKey = "auth.user"

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// carried no valid credentials.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
