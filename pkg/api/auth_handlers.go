package api

import (
	"net/http"

	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/httputil"
)

const (
	msgBadCredentials  = "用户名或密码错误"
	msgAccountDisabled = "用户已被禁用，请联系管理员"
	msgLogoutOK        = "退出登录成功"
)

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued token alongside the account summary the
// console renders after login.
type LoginResult struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	RealName  string    `json:"realName"`
	Role      auth.Role `json:"role"`
	Status    int       `json:"status"`
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	user, err := s.stores.Users.GetByUsername(ctx, req.Username)
	if err == ErrNotFound {
		s.loginOutcome("bad_credentials")
		httputil.WriteUnauthorized(w, msgBadCredentials)
		return
	} else if err != nil {
		s.logger.WithError(err).Error("login account lookup failed")
		httputil.WriteInternalError(w, err)
		return
	}

	if !s.hasher.Matches(req.Password, user.Password) {
		s.loginOutcome("bad_credentials")
		httputil.WriteUnauthorized(w, msgBadCredentials)
		return
	}
	if user.Status != UserStatusNormal {
		s.loginOutcome("disabled")
		httputil.WriteForbidden(w, msgAccountDisabled)
		return
	}

	token, err := s.issuer.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		s.logger.WithError(err).Error("token issue failed")
		httputil.WriteInternalError(w, err)
		return
	}

	// The token is valid on its own; a failed session write degrades
	// server-side tracking but must not fail the login.
	if err := s.sessions.SaveSession(ctx, user.ID, user.Username, token); err != nil {
		s.logger.WithError(err).Error("session save failed during login")
		s.loginOutcome("session_error")
	}

	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.Inc()
	}
	s.loginOutcome("success")
	if s.trail != nil {
		s.trail.RecordLogin(ctx, user.ID, httputil.ClientIP(r))
	}

	httputil.WriteOK(w, LoginResult{
		ID:        user.ID,
		Username:  user.Username,
		RealName:  user.RealName,
		Role:      user.Role,
		Status:    user.Status,
		Token:     token,
		TokenType: "Bearer",
	})
}

// handleLogout is deliberately forgiving: whatever state the token is in,
// the caller ends up logged out and gets a success envelope. An expired
// or mangled token still blacklists and clears whatever it can.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := httputil.BearerToken(r)
	if token == "" {
		httputil.WriteOKMessage(w, msgLogoutOK, nil)
		return
	}

	var userID int64
	if subject, err := s.issuer.Subject(token); err == nil {
		if user, err := s.stores.Users.GetByUsername(ctx, subject); err == nil {
			userID = user.ID
			if err := s.sessions.RemoveSession(ctx, user.ID); err != nil {
				s.logger.WithError(err).Warn("session removal failed during logout")
			}
		}
	}

	if expiry, err := s.issuer.ExpiryUnixMilli(token); err == nil {
		if err := s.sessions.Blacklist(ctx, token, expiry); err != nil {
			s.logger.WithError(err).Warn("token blacklisting failed during logout")
		}
	}

	if s.trail != nil && userID != 0 {
		s.trail.RecordLogout(ctx, userID, httputil.ClientIP(r))
	}

	httputil.WriteOKMessage(w, msgLogoutOK, nil)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := GetIdentity(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgNotLoggedIn)
		return
	}
	httputil.WriteOK(w, ident.User)
}

func (s *Server) loginOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
