package api

import (
	"net/http"

	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/httputil"
)

// Notifications are always scoped to the caller: listings, counters and
// read marks never cross user boundaries.

func (s *Server) handleNotificationPage(w http.ResponseWriter, r *http.Request) {
	ident, _ := GetIdentity(r.Context())
	pageNum, pageSize := httputil.ParsePage(r)

	filter := NotificationFilter{UserID: &ident.User.ID}
	if v, err := httputil.ParseQueryInt(r, "isRead", -1); err == nil && v >= 0 {
		filter.IsRead = &v
	}
	filter.RelatedModule = httputil.ParseQueryString(r, "relatedModule", "")

	page := PageRequest{Num: pageNum, Size: pageSize}
	notifications, total, err := s.stores.Notifications.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(notifications, total, page))
}

func (s *Server) handleNotificationUnreadCount(w http.ResponseWriter, r *http.Request) {
	ident, _ := GetIdentity(r.Context())

	count, err := s.stores.Notifications.CountUnread(r.Context(), ident.User.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]int64{"count": count})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ident, _ := GetIdentity(r.Context())

	err := s.stores.Notifications.MarkRead(r.Context(), id, ident.User.ID)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "通知不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleNotificationReadAll(w http.ResponseWriter, r *http.Request) {
	ident, _ := GetIdentity(r.Context())

	marked, err := s.stores.Notifications.MarkAllRead(r.Context(), ident.User.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]int64{"marked": marked})
}

func (s *Server) handleNotificationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	ident, _ := GetIdentity(ctx)

	notification, err := s.stores.Notifications.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "通知不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if notification.UserID != ident.User.ID && !ident.HasAuthority(auth.AuthorityFullAccess) {
		httputil.WriteForbidden(w, "无权限访问")
		return
	}

	if err := s.stores.Notifications.Delete(ctx, id); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}
