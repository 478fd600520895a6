package auth

import (
	"context"
	"time"
)

const (
	RoleTrainer = "trainer"
	RoleClient  = "client"
)

// Session is the redis-stored login session of a trainer or a client.
type Session struct {
	UserID    int       `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionContextKey struct{}

func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext returns the session set by the auth middleware.
// For unauthenticated (public path) requests the second value is false.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok
}
