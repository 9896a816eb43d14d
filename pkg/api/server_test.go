package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/middleware"
	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/session"
)

// The stores below are plain in-memory maps so the handler tests can run
// the real router, the real gate and the real session store without a
// database.

type memUserStore struct {
	seq  int64
	byID map[int64]*api.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[int64]*api.User{}}
}

func (s *memUserStore) Create(ctx context.Context, user *api.User) error {
	s.seq++
	user.ID = s.seq
	user.CreateTime = time.Now()
	user.UpdateTime = user.CreateTime
	s.byID[user.ID] = user
	return nil
}

func (s *memUserStore) Update(ctx context.Context, user *api.User) error {
	if _, ok := s.byID[user.ID]; !ok {
		return api.ErrNotFound
	}
	user.UpdateTime = time.Now()
	s.byID[user.ID] = user
	return nil
}

func (s *memUserStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memUserStore) GetByID(ctx context.Context, id int64) (*api.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, api.ErrNotFound
}

func (s *memUserStore) GetByUsername(ctx context.Context, username string) (*api.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, api.ErrNotFound
}

func (s *memUserStore) Search(ctx context.Context, filter api.UserFilter, page api.PageRequest) ([]*api.User, int64, error) {
	var out []*api.User
	for _, u := range s.byID {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (s *memUserStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := s.byID[id]
	if !ok {
		return api.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (s *memUserStore) UpdateStatus(ctx context.Context, id int64, status int) error {
	u, ok := s.byID[id]
	if !ok {
		return api.ErrNotFound
	}
	u.Status = status
	return nil
}

type memMachineryStore struct {
	seq  int64
	byID map[int64]*api.Machinery
}

func newMemMachineryStore() *memMachineryStore {
	return &memMachineryStore{byID: map[int64]*api.Machinery{}}
}

func (s *memMachineryStore) Create(ctx context.Context, m *api.Machinery) error {
	s.seq++
	m.ID = s.seq
	m.CreateTime = time.Now()
	m.UpdateTime = m.CreateTime
	s.byID[m.ID] = m
	return nil
}

func (s *memMachineryStore) Update(ctx context.Context, m *api.Machinery) error {
	if _, ok := s.byID[m.ID]; !ok {
		return api.ErrNotFound
	}
	m.UpdateTime = time.Now()
	s.byID[m.ID] = m
	return nil
}

func (s *memMachineryStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memMachineryStore) GetByID(ctx context.Context, id int64) (*api.Machinery, error) {
	if m, ok := s.byID[id]; ok {
		return m, nil
	}
	return nil, api.ErrNotFound
}

func (s *memMachineryStore) GetByCode(ctx context.Context, code string) (*api.Machinery, error) {
	for _, m := range s.byID {
		if m.MachineryCode == code {
			return m, nil
		}
	}
	return nil, api.ErrNotFound
}

func (s *memMachineryStore) Search(ctx context.Context, filter api.MachineryFilter, page api.PageRequest) ([]*api.Machinery, int64, error) {
	var out []*api.Machinery
	for _, m := range s.byID {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (s *memMachineryStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	m, ok := s.byID[id]
	if !ok {
		return api.ErrNotFound
	}
	m.Status = status
	return nil
}

type memFarmlandStore struct {
	seq  int64
	byID map[int64]*api.Farmland
}

func newMemFarmlandStore() *memFarmlandStore {
	return &memFarmlandStore{byID: map[int64]*api.Farmland{}}
}

func (s *memFarmlandStore) Create(ctx context.Context, f *api.Farmland) error {
	s.seq++
	f.ID = s.seq
	s.byID[f.ID] = f
	return nil
}

func (s *memFarmlandStore) Update(ctx context.Context, f *api.Farmland) error {
	if _, ok := s.byID[f.ID]; !ok {
		return api.ErrNotFound
	}
	s.byID[f.ID] = f
	return nil
}

func (s *memFarmlandStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memFarmlandStore) GetByID(ctx context.Context, id int64) (*api.Farmland, error) {
	if f, ok := s.byID[id]; ok {
		return f, nil
	}
	return nil, api.ErrNotFound
}

func (s *memFarmlandStore) GetByCode(ctx context.Context, landCode string) (*api.Farmland, error) {
	for _, f := range s.byID {
		if f.LandCode == landCode {
			return f, nil
		}
	}
	return nil, api.ErrNotFound
}

func (s *memFarmlandStore) Search(ctx context.Context, filter api.FarmlandFilter, page api.PageRequest) ([]*api.Farmland, int64, error) {
	var out []*api.Farmland
	for _, f := range s.byID {
		out = append(out, f)
	}
	return out, int64(len(out)), nil
}

type memMaintainStore struct {
	seq  int64
	byID map[int64]*api.MaintainRecord
}

func newMemMaintainStore() *memMaintainStore {
	return &memMaintainStore{byID: map[int64]*api.MaintainRecord{}}
}

func (s *memMaintainStore) Create(ctx context.Context, r *api.MaintainRecord) error {
	s.seq++
	r.ID = s.seq
	s.byID[r.ID] = r
	return nil
}

func (s *memMaintainStore) Update(ctx context.Context, r *api.MaintainRecord) error {
	if _, ok := s.byID[r.ID]; !ok {
		return api.ErrNotFound
	}
	s.byID[r.ID] = r
	return nil
}

func (s *memMaintainStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memMaintainStore) GetByID(ctx context.Context, id int64) (*api.MaintainRecord, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, api.ErrNotFound
}

func (s *memMaintainStore) Search(ctx context.Context, filter api.MaintainRecordFilter, page api.PageRequest) ([]*api.MaintainRecord, int64, error) {
	var out []*api.MaintainRecord
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (s *memMaintainStore) ListDue(ctx context.Context, on time.Time) ([]*api.MaintainRecord, error) {
	var out []*api.MaintainRecord
	for _, r := range s.byID {
		if r.NextMaintainTime != nil && !r.NextMaintainTime.After(on) {
			out = append(out, r)
		}
	}
	return out, nil
}

type memTaskStore struct {
	seq  int64
	byID map[int64]*api.OperationTask
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{byID: map[int64]*api.OperationTask{}}
}

func (s *memTaskStore) Create(ctx context.Context, t *api.OperationTask) error {
	s.seq++
	t.ID = s.seq
	s.byID[t.ID] = t
	return nil
}

func (s *memTaskStore) Update(ctx context.Context, t *api.OperationTask) error {
	if _, ok := s.byID[t.ID]; !ok {
		return api.ErrNotFound
	}
	s.byID[t.ID] = t
	return nil
}

func (s *memTaskStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memTaskStore) GetByID(ctx context.Context, id int64) (*api.OperationTask, error) {
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, api.ErrNotFound
}

func (s *memTaskStore) GetByCode(ctx context.Context, taskCode string) (*api.OperationTask, error) {
	for _, t := range s.byID {
		if t.TaskCode == taskCode {
			return t, nil
		}
	}
	return nil, api.ErrNotFound
}

func (s *memTaskStore) Search(ctx context.Context, filter api.OperationTaskFilter, page api.PageRequest) ([]*api.OperationTask, int64, error) {
	var out []*api.OperationTask
	for _, t := range s.byID {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (s *memTaskStore) UpdateStatus(ctx context.Context, id int64, status int) error {
	t, ok := s.byID[id]
	if !ok {
		return api.ErrNotFound
	}
	t.Status = status
	return nil
}

type memNotificationStore struct {
	seq  int64
	byID map[int64]*api.Notification
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{byID: map[int64]*api.Notification{}}
}

func (s *memNotificationStore) Create(ctx context.Context, n *api.Notification) error {
	s.seq++
	n.ID = s.seq
	n.CreateTime = time.Now()
	s.byID[n.ID] = n
	return nil
}

func (s *memNotificationStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memNotificationStore) GetByID(ctx context.Context, id int64) (*api.Notification, error) {
	if n, ok := s.byID[id]; ok {
		return n, nil
	}
	return nil, api.ErrNotFound
}

func (s *memNotificationStore) Search(ctx context.Context, filter api.NotificationFilter, page api.PageRequest) ([]*api.Notification, int64, error) {
	var out []*api.Notification
	for _, n := range s.byID {
		if filter.UserID != nil && n.UserID != *filter.UserID {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		if filter.RelatedModule != "" && n.RelatedModule != filter.RelatedModule {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (s *memNotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return api.ErrNotFound
	}
	n.IsRead = 1
	return nil
}

func (s *memNotificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var marked int64
	for _, n := range s.byID {
		if n.UserID == userID && n.IsRead == 0 {
			n.IsRead = 1
			marked++
		}
	}
	return marked, nil
}

func (s *memNotificationStore) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range s.byID {
		if n.UserID == userID && n.IsRead == 0 {
			count++
		}
	}
	return count, nil
}

func (s *memNotificationStore) HasUnreadForRelated(ctx context.Context, userID int64, relatedModule string, relatedID int64) (bool, error) {
	for _, n := range s.byID {
		if n.UserID == userID && n.IsRead == 0 && n.RelatedModule == relatedModule &&
			n.RelatedID != nil && *n.RelatedID == relatedID {
			return true, nil
		}
	}
	return false, nil
}

type memDictStore struct {
	seq  int64
	byID map[int64]*api.Dict
}

func newMemDictStore() *memDictStore {
	return &memDictStore{byID: map[int64]*api.Dict{}}
}

func (s *memDictStore) Create(ctx context.Context, d *api.Dict) error {
	s.seq++
	d.ID = s.seq
	s.byID[d.ID] = d
	return nil
}

func (s *memDictStore) Update(ctx context.Context, d *api.Dict) error {
	if _, ok := s.byID[d.ID]; !ok {
		return api.ErrNotFound
	}
	s.byID[d.ID] = d
	return nil
}

func (s *memDictStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memDictStore) GetByID(ctx context.Context, id int64) (*api.Dict, error) {
	if d, ok := s.byID[id]; ok {
		return d, nil
	}
	return nil, api.ErrNotFound
}

func (s *memDictStore) GetByTypeAndCode(ctx context.Context, dictType, code string) (*api.Dict, error) {
	for _, d := range s.byID {
		if d.Type == dictType && d.Code == code {
			return d, nil
		}
	}
	return nil, api.ErrNotFound
}

func (s *memDictStore) ListByType(ctx context.Context, dictType string) ([]*api.Dict, error) {
	var out []*api.Dict
	for _, d := range s.byID {
		if d.Type == dictType {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memDictStore) Search(ctx context.Context, filter api.DictFilter, page api.PageRequest) ([]*api.Dict, int64, error) {
	var out []*api.Dict
	for _, d := range s.byID {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

type memOperateLogStore struct {
	seq     int64
	entries []*api.OperateLog
}

func (s *memOperateLogStore) Insert(ctx context.Context, entry *api.OperateLog) error {
	s.seq++
	entry.ID = s.seq
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memOperateLogStore) Search(ctx context.Context, filter api.OperateLogFilter, page api.PageRequest) ([]*api.OperateLog, int64, error) {
	total := int64(len(s.entries))
	start := page.Offset()
	if start >= len(s.entries) {
		return nil, total, nil
	}
	end := start + page.Size
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[start:end], total, nil
}

func (s *memOperateLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*api.OperateLog
	var removed int64
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

// serverFixture runs the full router behind the real authentication gate
// with in-memory stores and a miniredis-backed session store.
type serverFixture struct {
	server        *api.Server
	issuer        *auth.TokenIssuer
	hasher        *auth.PasswordHasher
	sessions      *session.Store
	users         *memUserStore
	machinery     *memMachineryStore
	farmland      *memFarmlandStore
	tasks         *memTaskStore
	notifications *memNotificationStore
	dict          *memDictStore
	logs          *memOperateLogStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &serverFixture{
		issuer:        auth.NewTokenIssuer("api-test-secret", time.Hour),
		hasher:        auth.NewPasswordHasherWithCost(4),
		sessions:      session.NewStore(client, time.Hour, nil),
		users:         newMemUserStore(),
		machinery:     newMemMachineryStore(),
		farmland:      newMemFarmlandStore(),
		tasks:         newMemTaskStore(),
		notifications: newMemNotificationStore(),
		dict:          newMemDictStore(),
		logs:          &memOperateLogStore{},
	}

	ctx := context.Background()
	f.seedUser(t, ctx, "admin", "admin123", auth.RoleAdmin, api.UserStatusNormal)
	f.seedUser(t, ctx, "operator", "operator123", auth.RoleOperator, api.UserStatusNormal)
	f.seedUser(t, ctx, "frozen", "frozen123", auth.RoleOperator, api.UserStatusDisabled)

	stores := api.Stores{
		Users:           f.users,
		Machinery:       f.machinery,
		Farmland:        f.farmland,
		MaintainRecords: newMemMaintainStore(),
		OperationTasks:  f.tasks,
		Notifications:   f.notifications,
		Dict:            f.dict,
		OperateLogs:     f.logs,
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	gate := middleware.NewAuthGate(f.issuer, f.users, f.sessions, logger, nil, nil)

	f.server = api.NewServer(api.ServerConfig{
		Stores:      stores,
		Issuer:      f.issuer,
		Hasher:      f.hasher,
		Sessions:    f.sessions,
		Logger:      logger,
		Middlewares: []mux.MiddlewareFunc{gate.Handler},
	})
	return f
}

func (f *serverFixture) seedUser(t *testing.T, ctx context.Context, username, password string, role auth.Role, status int) {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := f.users.Create(ctx, &api.User{
		Username: username,
		Password: hash,
		RealName: username,
		Role:     role,
		Status:   status,
	}); err != nil {
		t.Fatalf("seeding user %s failed: %v", username, err)
	}
}

// envelope mirrors the uniform response body with the data kept raw so
// each test decodes only what it asserts on.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body failed: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	// Export endpoints stream raw documents; everything else wraps the
	// uniform envelope.
	var env envelope
	trimmed := bytes.TrimSpace(rec.Body.Bytes())
	if rec.Header().Get("Content-Type") == "application/json" && bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			t.Fatalf("decoding envelope failed: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

func (f *serverFixture) login(t *testing.T, username, password string) string {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, rec.Code, env.Message)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding login result failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned an empty token")
	}
	return result.Token
}
