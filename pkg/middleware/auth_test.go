package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/session"
)

type stubUserStore struct {
	users map[string]*api.User
}

func (s *stubUserStore) Create(ctx context.Context, user *api.User) error { return nil }
func (s *stubUserStore) Update(ctx context.Context, user *api.User) error { return nil }
func (s *stubUserStore) Delete(ctx context.Context, id int64) error       { return nil }
func (s *stubUserStore) GetByID(ctx context.Context, id int64) (*api.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, api.ErrNotFound
}
func (s *stubUserStore) GetByUsername(ctx context.Context, username string) (*api.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, api.ErrNotFound
}
func (s *stubUserStore) Search(ctx context.Context, filter api.UserFilter, page api.PageRequest) ([]*api.User, int64, error) {
	return nil, 0, nil
}
func (s *stubUserStore) UpdatePassword(ctx context.Context, id int64, hash string) error { return nil }
func (s *stubUserStore) UpdateStatus(ctx context.Context, id int64, status int) error    { return nil }

type gateFixture struct {
	gate     *AuthGate
	issuer   *auth.TokenIssuer
	sessions *session.Store
	users    *stubUserStore
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := session.NewStore(client, time.Hour, nil)
	issuer := auth.NewTokenIssuer("gate-test-secret", time.Hour)
	users := &stubUserStore{users: map[string]*api.User{
		"admin": {ID: 1, Username: "admin", Role: auth.RoleAdmin, Status: api.UserStatusNormal},
		"frozen": {
			ID: 2, Username: "frozen", Role: auth.RoleOperator, Status: api.UserStatusDisabled,
		},
	}}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	return &gateFixture{
		gate:     NewAuthGate(issuer, users, sessions, logger, nil, nil),
		issuer:   issuer,
		sessions: sessions,
		users:    users,
	}
}

// identityProbe records whether an identity reached the handler.
func identityProbe(got **api.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident, ok := api.GetIdentity(r.Context()); ok {
			*got = ident
		}
		w.WriteHeader(http.StatusOK)
	})
}

func serveWithToken(t *testing.T, gate *AuthGate, path, token string) (*api.Identity, *httptest.ResponseRecorder) {
	t.Helper()
	var ident *api.Identity
	handler := gate.Handler(identityProbe(&ident))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ident, rec
}

func TestAuthGate_ValidToken(t *testing.T) {
	f := newGateFixture(t)

	token, err := f.issuer.Issue(1, "admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ident, rec := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("gate must not terminate the chain, got %d", rec.Code)
	}
	if ident == nil {
		t.Fatal("expected an identity for a valid token")
	}
	if ident.User.Username != "admin" || ident.Token != token {
		t.Errorf("unexpected identity: %+v", ident)
	}
}

func TestAuthGate_NoTokenContinuesAnonymously(t *testing.T) {
	f := newGateFixture(t)

	ident, rec := serveWithToken(t, f.gate, "/api/machinery/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gate must not terminate the chain, got %d", rec.Code)
	}
	if ident != nil {
		t.Error("no token must mean no identity")
	}
}

func TestAuthGate_BlacklistedToken(t *testing.T) {
	f := newGateFixture(t)

	token, err := f.issuer.Issue(1, "admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	expiry, err := f.issuer.ExpiryUnixMilli(token)
	if err != nil {
		t.Fatalf("ExpiryUnixMilli failed: %v", err)
	}
	if err := f.sessions.Blacklist(context.Background(), token, expiry); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}

	ident, _ := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if ident != nil {
		t.Error("a blacklisted token must not yield an identity")
	}
}

func TestAuthGate_DisabledAccount(t *testing.T) {
	f := newGateFixture(t)

	token, err := f.issuer.Issue(2, "frozen", auth.RoleOperator)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ident, _ := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if ident != nil {
		t.Error("a disabled account must not authenticate")
	}
}

func TestAuthGate_UnknownAccount(t *testing.T) {
	f := newGateFixture(t)

	token, err := f.issuer.Issue(9, "deleted", auth.RoleOperator)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ident, _ := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if ident != nil {
		t.Error("a token for a deleted account must not authenticate")
	}
}

func TestAuthGate_ExpiredToken(t *testing.T) {
	f := newGateFixture(t)
	expiredIssuer := auth.NewTokenIssuer("gate-test-secret", -time.Minute)

	token, err := expiredIssuer.Issue(1, "admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ident, _ := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if ident != nil {
		t.Error("an expired token must not authenticate")
	}
}

func TestAuthGate_AllowlistSkipsResolution(t *testing.T) {
	f := newGateFixture(t)

	// Garbage token on an allowlisted path must not matter.
	ident, rec := serveWithToken(t, f.gate, "/api/auth/login", "garbage")
	if rec.Code != http.StatusOK {
		t.Fatalf("allowlisted path must pass, got %d", rec.Code)
	}
	if ident != nil {
		t.Error("allowlisted paths are anonymous by definition")
	}
}

func TestAuthGate_RefreshesSession(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	token, err := f.issuer.Issue(1, "admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := f.sessions.SaveSession(ctx, 1, "admin", token); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	ident, _ := serveWithToken(t, f.gate, "/api/machinery/1", token)
	if ident == nil {
		t.Fatal("expected an identity")
	}

	active, err := f.sessions.IsActive(ctx, 1)
	if err != nil {
		t.Fatalf("IsActive failed: %v", err)
	}
	if !active {
		t.Error("session must survive an authenticated request")
	}
}

func TestMatchPath(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/auth/login", "/api/auth/login", true},
		{"/api/auth/login", "/api/auth/logout", false},
		{"/api/public/**", "/api/public/docs", true},
		{"/api/public/**", "/api/public", true},
		{"/api/public/**", "/api/publicity", false},
		{"/static/**", "/static/js/app.js", true},
		{"/metrics", "/metrics", true},
		{"/metrics", "/metrics2", false},
	}
	for _, tc := range cases {
		if got := MatchPath(tc.pattern, tc.path); got != tc.want {
			t.Errorf("MatchPath(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestRequireAuthority(t *testing.T) {
	handler := api.RequireAuthority(auth.AuthorityManageUsers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous gets 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("operator gets 403", func(t *testing.T) {
		f := newGateFixture(t)
		token, _ := f.issuer.Issue(3, "operator1", auth.RoleOperator)
		f.users.users["operator1"] = &api.User{ID: 3, Username: "operator1", Role: auth.RoleOperator, Status: api.UserStatusNormal}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		f.gate.Handler(handler).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		f := newGateFixture(t)
		token, _ := f.issuer.Issue(1, "admin", auth.RoleAdmin)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		f.gate.Handler(handler).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
