package audit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/contextkeys"
	"github.com/farmops/agrifleet/pkg/observability"
)

type captureStore struct {
	entries []*api.OperateLog
}

func (s *captureStore) Insert(ctx context.Context, entry *api.OperateLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureStore) Search(ctx context.Context, filter api.OperateLogFilter, page api.PageRequest) ([]*api.OperateLog, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}

func (s *captureStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*api.OperateLog
	removed := int64(0)
	for _, e := range s.entries {
		if e.OperateTime.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

func newTestMiddleware() (*Middleware, *captureStore) {
	store := &captureStore{}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewMiddleware(NewRecorder(store, logger)), store
}

func authedRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	ident := &api.Identity{User: &api.User{ID: 42, Username: "admin", Role: auth.RoleAdmin}}
	return req.WithContext(contextkeys.WithIdentity(req.Context(), ident))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_RecordsMutations(t *testing.T) {
	m, store := newTestMiddleware()
	handler := m.Handler(okHandler())

	req := authedRequest(http.MethodPost, "/api/machinery")
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.UserID != 42 {
		t.Errorf("expected user 42, got %d", entry.UserID)
	}
	if entry.OperateType != OperateTypeAdd {
		t.Errorf("expected type add, got %s", entry.OperateType)
	}
	if entry.OperateModule != "machinery" {
		t.Errorf("expected module machinery, got %s", entry.OperateModule)
	}
	if entry.OperateIP != "10.1.2.3" {
		t.Errorf("expected first forwarded address, got %s", entry.OperateIP)
	}
	if entry.OperateTime.IsZero() {
		t.Error("operate time must be stamped")
	}
}

func TestMiddleware_SkipsReads(t *testing.T) {
	m, store := newTestMiddleware()
	handler := m.Handler(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), authedRequest(http.MethodGet, "/api/machinery/page"))

	if len(store.entries) != 0 {
		t.Errorf("reads must not be recorded, got %d entries", len(store.entries))
	}
}

func TestMiddleware_SkipsFailedMutations(t *testing.T) {
	m, store := newTestMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), authedRequest(http.MethodPost, "/api/machinery"))

	if len(store.entries) != 0 {
		t.Errorf("failed mutations must not be recorded, got %d entries", len(store.entries))
	}
}

func TestMiddleware_SkipsAnonymous(t *testing.T) {
	m, store := newTestMiddleware()
	handler := m.Handler(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/machinery", nil))

	if len(store.entries) != 0 {
		t.Errorf("anonymous requests must not be recorded, got %d entries", len(store.entries))
	}
}

func TestRecorder_Cleanup(t *testing.T) {
	store := &captureStore{entries: []*api.OperateLog{
		{ID: 1, OperateTime: time.Now().AddDate(0, 0, -120)},
		{ID: 2, OperateTime: time.Now().AddDate(0, 0, -10)},
	}}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	recorder := NewRecorder(store, logger)

	removed, err := recorder.Cleanup(context.Background(), 90*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 trimmed entry, got %d", removed)
	}
	if len(store.entries) != 1 || store.entries[0].ID != 2 {
		t.Errorf("unexpected surviving entries: %+v", store.entries)
	}
}

func TestModuleForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/machinery/5", "machinery"},
		{"/api/maintain-records", "maintain"},
		{"/api/operation-tasks/9/status", "operation"},
		{"/api/users/1/password", "user"},
		{"/api/dict/type/machinery_type", "dict"},
		{"/api/auth/logout", "auth"},
		{"/api/future-module/1", "future-module"},
		{"/", "unknown"},
	}
	for _, tc := range cases {
		if got := ModuleForPath(tc.path); got != tc.want {
			t.Errorf("ModuleForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
