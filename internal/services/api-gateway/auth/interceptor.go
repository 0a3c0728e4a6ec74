package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/httpx"

	"go.uber.org/zap"
)

type ctxKey int

const identityKey ctxKey = 1

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Identity, error)
}

func WithIdentity(ctx context.Context, i *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, i)
}

func IdentityFromCtx(ctx context.Context) (*identity.Identity, bool) {
	i, ok := ctx.Value(identityKey).(*identity.Identity)
	return i, ok && i != nil
}

// MustIdentity is for handlers mounted behind Middleware.
func MustIdentity(ctx context.Context) *identity.Identity {
	i, ok := IdentityFromCtx(ctx)
	if !ok {
		panic("auth: handler reached without an authenticated identity")
	}
	return i
}

// Middleware rejects the request before next runs unless it carries a valid
// access token for an identity that still exists.
func Middleware(a Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "auth.gate"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me, err := a.Authenticate(r.Context(), accessToken(r))
			if err != nil {
				httpx.Fail(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), me)))
		})
	}
}

func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearer(r.Header.Get("Authorization"))
}

func bearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
