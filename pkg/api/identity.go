package api

import (
	"context"
	"net/http"

	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/contextkeys"
	"github.com/farmops/agrifleet/pkg/httputil"
)

// Identity is the authenticated caller, attached to the request context by
// the authentication gate. Requests that fail authentication simply carry
// no identity; the guards below turn that into a 401.
type Identity struct {
	User  *User
	Token string
}

// HasAuthority reports whether the caller's role grants the authority.
func (id *Identity) HasAuthority(authority auth.Authority) bool {
	if id == nil || id.User == nil {
		return false
	}
	return id.User.Role.HasAuthority(authority)
}

// GetIdentity extracts the caller from the context.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	return ident, ok && ident != nil
}

const msgNotLoggedIn = "用户未登录"

// RequireAuth rejects unauthenticated requests with a 401 envelope.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetIdentity(r.Context()); !ok {
			httputil.WriteUnauthorized(w, msgNotLoggedIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority rejects callers whose role lacks the authority. An
// unauthenticated caller still gets a 401, not a 403.
func RequireAuthority(authority auth.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := GetIdentity(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, msgNotLoggedIn)
				return
			}
			if !ident.HasAuthority(authority) {
				httputil.WriteForbidden(w, "无权限访问")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
