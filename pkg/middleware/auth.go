package middleware

import (
	"net/http"
	"strings"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/contextkeys"
	"github.com/farmops/agrifleet/pkg/httputil"
	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/session"
)

// DefaultAllowlist are the paths the gate skips entirely: login, health,
// metrics and anything published under the public prefixes.
var DefaultAllowlist = []string{
	"/api/auth/login",
	"/api/public/**",
	"/healthz",
	"/readyz",
	"/metrics",
	"/static/**",
}

// AuthGate resolves the caller behind a bearer token and attaches it to
// the request context. It never terminates the chain itself: a request
// that fails any check just continues anonymously, and the per-route
// guards decide whether anonymous is acceptable. Logout in particular
// must reach its handler with or without a live token.
type AuthGate struct {
	issuer    *auth.TokenIssuer
	users     api.UserStore
	sessions  *session.Store
	logger    *observability.Logger
	metrics   *observability.Metrics
	allowlist []string
}

// NewAuthGate builds the gate. metrics may be nil.
func NewAuthGate(issuer *auth.TokenIssuer, users api.UserStore, sessions *session.Store, logger *observability.Logger, metrics *observability.Metrics, allowlist []string) *AuthGate {
	if allowlist == nil {
		allowlist = DefaultAllowlist
	}
	return &AuthGate{
		issuer:    issuer,
		users:     users,
		sessions:  sessions,
		logger:    logger,
		metrics:   metrics,
		allowlist: allowlist,
	}
}

// Handler wraps next with token resolution.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := httputil.BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident := g.resolve(r, token)
		if ident == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve turns a bearer token into an identity, or nil when any check
// fails. Failures are logged but never surfaced to the caller here.
func (g *AuthGate) resolve(r *http.Request, token string) *api.Identity {
	ctx := r.Context()

	claims, err := g.issuer.ParseClaims(token)
	if err != nil {
		g.rejected("invalid_token")
		return nil
	}

	// Revocation check comes before anything hits the database.
	blacklisted, err := g.sessions.IsBlacklisted(ctx, token)
	if err != nil {
		g.logger.WithError(err).Warn("token blacklist check failed, rejecting token")
		g.rejected("blacklist_unavailable")
		return nil
	}
	if blacklisted {
		if g.metrics != nil {
			g.metrics.BlacklistHitsTotal.Inc()
		}
		g.rejected("blacklisted")
		return nil
	}

	user, err := g.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if err != api.ErrNotFound {
			g.logger.WithError(err).Warn("account lookup failed during authentication")
		}
		g.rejected("unknown_account")
		return nil
	}

	if user.Status != api.UserStatusNormal {
		g.rejected("disabled_account")
		return nil
	}
	if !g.issuer.Validate(token, user.Username) {
		g.rejected("invalid_token")
		return nil
	}

	// Touch the session so activity keeps it alive. Best effort.
	if _, err := g.sessions.GetSession(ctx, user.ID); err != nil {
		g.logger.WithError(err).Warn("session refresh failed")
	}

	return &api.Identity{User: user, Token: token}
}

func (g *AuthGate) rejected(reason string) {
	if g.metrics != nil {
		g.metrics.TokensRejectedTotal.WithLabelValues(reason).Inc()
	}
}

func (g *AuthGate) skip(path string) bool {
	for _, pattern := range g.allowlist {
		if MatchPath(pattern, path) {
			return true
		}
	}
	return false
}

// MatchPath matches a request path against an allowlist pattern. A
// trailing "/**" matches the prefix and everything under it; otherwise
// the pattern must match exactly.
func MatchPath(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return pattern == path
}
