package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/auth"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// UserLookup loads the session's user so blocked or deleted accounts lose
// access immediately.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// RequireAuth validates the session (cookie or Bearer) and injects the
// user id into the request context.
func RequireAuth(sessions auth.Sessions, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := auth.SessionID(r)
			if sid == "" {
				sid = r.URL.Query().Get("token")
			}
			if sid == "" {
				httpx.Error(w, r, apperr.Unauthorized("not authenticated"))
				return
			}

			userID, err := sessions.Get(r.Context(), sid)
			if err != nil {
				httpx.Error(w, r, apperr.Internal(err))
				return
			}
			if userID == 0 {
				httpx.Error(w, r, apperr.Unauthorized("session expired"))
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if apperr.Is(err, apperr.KindNotFound) {
				httpx.Error(w, r, apperr.Unauthorized("session expired"))
				return
			}
			if err != nil {
				httpx.Error(w, r, err)
				return
			}
			if user.Blocked {
				httpx.Error(w, r, auth.ErrBlocked)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

type adminKey struct{}

// RequireAdmin accepts only Bearer admin tokens signed with secret.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if len(authz) <= 7 || !strings.EqualFold(authz[:7], "bearer ") {
				httpx.Error(w, r, apperr.Unauthorized("missing bearer token"))
				return
			}
			claims, err := auth.ParseAdminToken(strings.TrimSpace(authz[7:]), secret)
			if err != nil {
				httpx.Error(w, r, apperr.Forbidden("Admin access only"))
				return
			}
			ctx := context.WithValue(r.Context(), adminKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminName returns the admin username set by RequireAdmin.
func AdminName(ctx context.Context) string {
	name, _ := ctx.Value(adminKey{}).(string)
	return name
}
