package api

import (
	"net/http"

	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/httputil"
)

// UserCreateRequest is the payload for a new account.
type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6"`
	RealName string `json:"realName" validate:"required"`
	Phone    string `json:"phone"`
	Role     int    `json:"role" validate:"required,oneof=1 2"`
}

// UserUpdateRequest is the payload for editing an account. Username and
// password never change through this path.
type UserUpdateRequest struct {
	RealName string `json:"realName" validate:"required"`
	Phone    string `json:"phone"`
	Role     int    `json:"role" validate:"required,oneof=1 2"`
	Status   *int   `json:"status" validate:"required,oneof=0 1"`
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req UserCreateRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := s.stores.Users.GetByUsername(ctx, req.Username); err == nil {
		httputil.WriteBadRequest(w, "用户名已存在")
		return
	} else if err != ErrNotFound {
		httputil.WriteInternalError(w, err)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user := &User{
		Username: req.Username,
		Password: hash,
		RealName: req.RealName,
		Phone:    req.Phone,
		Role:     auth.Role(req.Role),
		Status:   UserStatusNormal,
	}
	if err := s.stores.Users.Create(ctx, user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, user)
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req UserUpdateRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	user, err := s.stores.Users.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "用户不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user.RealName = req.RealName
	user.Phone = req.Phone
	user.Role = auth.Role(req.Role)
	user.Status = *req.Status

	if err := s.stores.Users.Update(ctx, user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, user)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	ident, _ := GetIdentity(ctx)
	if ident.User.ID == id {
		httputil.WriteBadRequest(w, "不能删除当前登录用户")
		return
	}

	err := s.stores.Users.Delete(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "用户不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// A deleted account must not keep a live session.
	if err := s.sessions.RemoveSession(ctx, id); err != nil {
		s.logger.WithError(err).Warn("session removal failed after user delete")
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	user, err := s.stores.Users.GetByID(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "用户不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, user)
}

func (s *Server) handleUserPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := UserFilter{
		Username: httputil.ParseQueryString(r, "username", ""),
		RealName: httputil.ParseQueryString(r, "realName", ""),
		Phone:    httputil.ParseQueryString(r, "phone", ""),
	}
	if v, err := httputil.ParseQueryInt(r, "role", 0); err == nil && v > 0 {
		filter.Role = &v
	}
	if v, err := httputil.ParseQueryInt(r, "status", -1); err == nil && v >= 0 {
		filter.Status = &v
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	users, total, err := s.stores.Users.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(users, total, page))
}

// PasswordRequest resets an account's password.
type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) handleUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req PasswordRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	err = s.stores.Users.UpdatePassword(ctx, id, hash)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "用户不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// Force re-login with the new credential.
	if err := s.sessions.RemoveSession(ctx, id); err != nil {
		s.logger.WithError(err).Warn("session removal failed after password reset")
	}
	httputil.WriteOK(w, nil)
}

// UserStatusRequest enables or disables an account.
type UserStatusRequest struct {
	Status *int `json:"status" validate:"required,oneof=0 1"`
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req UserStatusRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()
	ident, _ := GetIdentity(ctx)
	if ident.User.ID == id && *req.Status == UserStatusDisabled {
		httputil.WriteBadRequest(w, "不能禁用当前登录用户")
		return
	}

	err := s.stores.Users.UpdateStatus(ctx, id, *req.Status)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "用户不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// Disabling kicks the account out immediately.
	if *req.Status == UserStatusDisabled {
		if err := s.sessions.RemoveSession(ctx, id); err != nil {
			s.logger.WithError(err).Warn("session removal failed after disable")
		}
	}
	httputil.WriteOK(w, nil)
}
