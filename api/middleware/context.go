package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxScope  contextKey = "request_scope"
)

// requestScope is shared by the outer middleware with the handlers below it.
// Auth runs after Logging, so the subject travels back up through here.
type requestScope struct {
	userID string
}

func withRequestScope(ctx context.Context) (context.Context, *requestScope) {
	scope := &requestScope{}
	return context.WithValue(ctx, ctxScope, scope), scope
}

func noteUser(ctx context.Context, userID string) {
	if scope, ok := ctx.Value(ctxScope).(*requestScope); ok {
		scope.userID = userID
	}
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// UserUUIDFromContext returns the authenticated subject as a uuid.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}
