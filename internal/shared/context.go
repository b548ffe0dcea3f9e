package shared

import (
	"context"

	"github.com/meridian-hq/meridian-portal/internal/authz"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// UserFromContext extracts the current user snapshot from the request
// session, or nil when nobody is signed in.
func UserFromContext(ctx context.Context) *authz.User {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return nil
	}
	return sess.User()
}
