package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/session"
)

// TrailRecorder is the audit hook the auth handlers use for login and
// logout entries. Satisfied by audit.Recorder; nil disables the trail.
type TrailRecorder interface {
	RecordLogin(ctx context.Context, userID int64, ip string)
	RecordLogout(ctx context.Context, userID int64, ip string)
}

// ServerConfig wires the HTTP layer to everything beneath it. The global
// middleware chain (request IDs, logging, metrics, the auth gate, the
// audit middleware) is assembled by the caller so this package stays free
// of those dependencies.
type ServerConfig struct {
	Stores      Stores
	Issuer      *auth.TokenIssuer
	Hasher      *auth.PasswordHasher
	Sessions    *session.Store
	Trail       TrailRecorder
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Middlewares []mux.MiddlewareFunc
}

// Server is the REST surface of the fleet console.
type Server struct {
	router   *mux.Router
	stores   Stores
	issuer   *auth.TokenIssuer
	hasher   *auth.PasswordHasher
	sessions *session.Store
	trail    TrailRecorder
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewServer builds the server and registers every route.
func NewServer(config ServerConfig) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		stores:   config.Stores,
		issuer:   config.Issuer,
		hasher:   config.Hasher,
		sessions: config.Sessions,
		trail:    config.Trail,
		logger:   config.Logger,
		metrics:  config.Metrics,
	}

	for _, m := range config.Middlewares {
		s.router.Use(m)
	}
	s.registerRoutes()
	return s
}

// Router returns the configured handler for mounting into an http.Server.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router.PathPrefix("/api").Subrouter()

	// Authentication
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.Handle("/auth/currentUser", RequireAuth(http.HandlerFunc(s.handleCurrentUser))).Methods(http.MethodGet)

	// Fleet register
	r.Handle("/machinery/page", s.view(s.handleMachineryPage)).Methods(http.MethodGet)
	r.Handle("/machinery/{id:[0-9]+}", s.view(s.handleMachineryGet)).Methods(http.MethodGet)
	r.Handle("/machinery", s.manage(s.handleMachineryCreate)).Methods(http.MethodPost)
	r.Handle("/machinery/{id:[0-9]+}", s.manage(s.handleMachineryUpdate)).Methods(http.MethodPut)
	r.Handle("/machinery/{id:[0-9]+}", s.manage(s.handleMachineryDelete)).Methods(http.MethodDelete)
	r.Handle("/machinery/{id:[0-9]+}/status", s.operate(s.handleMachineryStatus)).Methods(http.MethodPut)

	// Plots
	r.Handle("/farmland/page", s.authed(s.handleFarmlandPage)).Methods(http.MethodGet)
	r.Handle("/farmland/{id:[0-9]+}", s.authed(s.handleFarmlandGet)).Methods(http.MethodGet)
	r.Handle("/farmland", s.manage(s.handleFarmlandCreate)).Methods(http.MethodPost)
	r.Handle("/farmland/{id:[0-9]+}", s.manage(s.handleFarmlandUpdate)).Methods(http.MethodPut)
	r.Handle("/farmland/{id:[0-9]+}", s.manage(s.handleFarmlandDelete)).Methods(http.MethodDelete)

	// Service history
	r.Handle("/maintain-records/page", s.authed(s.handleMaintainPage)).Methods(http.MethodGet)
	r.Handle("/maintain-records/{id:[0-9]+}", s.authed(s.handleMaintainGet)).Methods(http.MethodGet)
	r.Handle("/maintain-records", s.operate(s.handleMaintainCreate)).Methods(http.MethodPost)
	r.Handle("/maintain-records/{id:[0-9]+}", s.operate(s.handleMaintainUpdate)).Methods(http.MethodPut)
	r.Handle("/maintain-records/{id:[0-9]+}", s.manage(s.handleMaintainDelete)).Methods(http.MethodDelete)

	// Field jobs
	r.Handle("/operation-tasks/page", s.authed(s.handleTaskPage)).Methods(http.MethodGet)
	r.Handle("/operation-tasks/{id:[0-9]+}", s.authed(s.handleTaskGet)).Methods(http.MethodGet)
	r.Handle("/operation-tasks", s.manage(s.handleTaskCreate)).Methods(http.MethodPost)
	r.Handle("/operation-tasks/{id:[0-9]+}", s.manage(s.handleTaskUpdate)).Methods(http.MethodPut)
	r.Handle("/operation-tasks/{id:[0-9]+}", s.manage(s.handleTaskDelete)).Methods(http.MethodDelete)
	r.Handle("/operation-tasks/{id:[0-9]+}/status", s.operate(s.handleTaskStatus)).Methods(http.MethodPut)

	// Notifications (scoped to the caller)
	r.Handle("/notifications/page", s.authed(s.handleNotificationPage)).Methods(http.MethodGet)
	r.Handle("/notifications/unread-count", s.authed(s.handleNotificationUnreadCount)).Methods(http.MethodGet)
	r.Handle("/notifications/read-all", s.authed(s.handleNotificationReadAll)).Methods(http.MethodPut)
	r.Handle("/notifications/{id:[0-9]+}/read", s.authed(s.handleNotificationRead)).Methods(http.MethodPut)
	r.Handle("/notifications/{id:[0-9]+}", s.authed(s.handleNotificationDelete)).Methods(http.MethodDelete)

	// Dictionary
	r.Handle("/dict/page", s.authed(s.handleDictPage)).Methods(http.MethodGet)
	r.Handle("/dict/type/{type}", s.authed(s.handleDictByType)).Methods(http.MethodGet)
	r.Handle("/dict", s.admin(s.handleDictCreate)).Methods(http.MethodPost)
	r.Handle("/dict/{id:[0-9]+}", s.admin(s.handleDictUpdate)).Methods(http.MethodPut)
	r.Handle("/dict/{id:[0-9]+}", s.admin(s.handleDictDelete)).Methods(http.MethodDelete)

	// Accounts (administrators only)
	r.Handle("/users/page", s.users(s.handleUserPage)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}", s.users(s.handleUserGet)).Methods(http.MethodGet)
	r.Handle("/users", s.users(s.handleUserCreate)).Methods(http.MethodPost)
	r.Handle("/users/{id:[0-9]+}", s.users(s.handleUserUpdate)).Methods(http.MethodPut)
	r.Handle("/users/{id:[0-9]+}", s.users(s.handleUserDelete)).Methods(http.MethodDelete)
	r.Handle("/users/{id:[0-9]+}/password", s.users(s.handleUserPassword)).Methods(http.MethodPut)
	r.Handle("/users/{id:[0-9]+}/status", s.users(s.handleUserStatus)).Methods(http.MethodPut)

	// Audit trail (administrators only)
	r.Handle("/operate-logs/page", s.admin(s.handleOperateLogPage)).Methods(http.MethodGet)
	r.Handle("/operate-logs/export", s.admin(s.handleOperateLogExport)).Methods(http.MethodGet)
	r.Handle("/operate-logs/cleanup", s.admin(s.handleOperateLogCleanup)).Methods(http.MethodDelete)
}

// Guard shorthands. authed requires any authenticated caller; the rest
// layer an authority on top.

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return RequireAuth(h)
}

func (s *Server) view(h http.HandlerFunc) http.Handler {
	return RequireAuthority(auth.AuthorityViewMachines)(h)
}

func (s *Server) manage(h http.HandlerFunc) http.Handler {
	return RequireAuthority(auth.AuthorityManageMachines)(h)
}

func (s *Server) operate(h http.HandlerFunc) http.Handler {
	return RequireAuthority(auth.AuthorityOperateMachines)(h)
}

func (s *Server) users(h http.HandlerFunc) http.Handler {
	return RequireAuthority(auth.AuthorityManageUsers)(h)
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return RequireAuthority(auth.AuthorityRoleAdmin)(h)
}
