package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ayush/daybook/internal/auth"
	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/respond"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator resolves a session id to a user. *auth.Service implements it.
type Authenticator interface {
	CurrentUser(ctx context.Context, sid string) (models.User, error)
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// User returns the authenticated user stored by RequireAuth.
func User(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// UserID returns the authenticated user's id.
func UserID(ctx context.Context) (int64, bool) {
	user, ok := User(ctx)
	return user.ID, ok
}

// RequireAuth validates the session cookie and injects the user into the
// request context. Anonymous requests get 401.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authn.CurrentUser(r.Context(), auth.SessionID(r))
			if err != nil {
				respond.Error(w, r, err, "Failed to load session")
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnonymous rejects requests that already carry a valid session.
func RequireAnonymous(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := authn.CurrentUser(r.Context(), auth.SessionID(r))
			switch {
			case err == nil:
				respond.Error(w, r, models.ErrAlreadyAuthenticated, "")
				return
			case !errors.Is(err, models.ErrUnauthorized):
				respond.Error(w, r, err, "Failed to load session")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
