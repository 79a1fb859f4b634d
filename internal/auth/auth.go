package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

type ctxKey string

const (
	userIDCtxKey = ctxKey("userID")
	staffCtxKey  = ctxKey("isStaff")
)

// UserChecker validates that a token's user still exists and reports the
// staff flag from the database. Set it during app bootstrap via
// SetUserChecker; the package stays decoupled from the models layer.
type UserChecker func(ctx context.Context, uid uint) (exists, staff bool)

var checker UserChecker

// SetUserChecker configures the lookup used by Middleware and RequireAuth.
func SetUserChecker(c UserChecker) { checker = c }

// Secret returns AUTH_SECRET or a development default.
func Secret() string {
	if s := os.Getenv("AUTH_SECRET"); s != "" {
		return s
	}
	return "devauthsecret"
}

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, userID uint, staff bool) context.Context {
	ctx = context.WithValue(ctx, userIDCtxKey, userID)
	return context.WithValue(ctx, staffCtxKey, staff)
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(userIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// IsStaff reports whether the authenticated user has staff rights.
func IsStaff(ctx context.Context) bool {
	v, ok := ctx.Value(staffCtxKey).(bool)
	return ok && v
}

// Middleware attaches the user from a Bearer access token if one is
// presented and valid. Requests without a token pass through untouched;
// RequireAuth decides whether that matters.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			raw := strings.TrimSpace(header[len("Bearer "):])
			if uid, staff, err := ParseAccessToken(raw); err == nil {
				if checker != nil {
					exists, dbStaff := checker(r.Context(), uid)
					if !exists {
						next.ServeHTTP(w, r)
						return
					}
					staff = dbStaff
				}
				r = r.WithContext(WithUser(r.Context(), uid, staff))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := UserIDFromContext(r.Context()); !ok || uid == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"unauthorized"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects authenticated non-staff users.
func RequireStaff(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStaff(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":"forbidden"}`)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
