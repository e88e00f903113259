package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/users"
	"github.com/JaimeStill/erisa/pkg/handlers"
	"github.com/JaimeStill/erisa/pkg/routes"
)

// ErrUnauthenticated is returned to API clients without a valid session.
var ErrUnauthenticated = errors.New("authentication required")

type contextKey struct{}

// UserFinder loads the account referenced by a session.
type UserFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// WithUser returns a context carrying the signed-in user.
func WithUser(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the signed-in user, if any.
func UserFrom(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*users.User)
	return u, ok && u != nil
}

// AuthorID returns the signed-in user's id. It satisfies annotations.AuthorFunc.
func AuthorID(r *http.Request) (uuid.UUID, bool) {
	u, ok := UserFrom(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

// Session resolves the session cookie into a user on the request context.
// Requests without a valid session pass through anonymously; a cookie that
// names a deleted account is cleared.
func Session(sessions *Sessions, finder UserFinder, logger *slog.Logger) routes.Middleware {
	logger = logger.With("middleware", "session")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := sessions.Read(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			u, err := finder.Find(r.Context(), id)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					sessions.Clear(w)
				} else {
					logger.Error("load session user failed", "user", id, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequirePage redirects anonymous requests to the login page, preserving the
// requested path in the next parameter.
func RequirePage(loginPath string) routes.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFrom(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// RequireAPI rejects anonymous requests with a 401 JSON error.
func RequireAPI(logger *slog.Logger) routes.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFrom(r.Context()); !ok {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SafeRedirect returns next when it is a local path, otherwise fallback.
func SafeRedirect(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
