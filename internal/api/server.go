package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/auth"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/config"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/logger"
)

// LedgerSubmitter submits a named chaincode function with ordered
// string arguments and returns the raw response bytes.
type LedgerSubmitter interface {
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
}

// Dependencies holds the collaborators the API service dispatches to.
type Dependencies struct {
	Credentials auth.CredentialStore
	Sessions    auth.SessionStore
	Tokens      *auth.TokenIssuer
	Authorizer  *auth.RoleAuthorizer
	Ledger      LedgerSubmitter
}

// Service implements the HTTP API: it verifies bearer tokens, enforces
// the role-capability matrix and bridges authorized requests to the
// ledger gateway.
type Service struct {
	router      *mux.Router
	server      *http.Server
	log         *logger.Logger
	credentials auth.CredentialStore
	sessions    auth.SessionStore
	tokens      *auth.TokenIssuer
	authorizer  *auth.RoleAuthorizer
	ledger      LedgerSubmitter
	metrics     *Metrics
	limiter     *UserRateLimiter
}

// NewService creates the API service and wires routes and middleware.
func NewService(cfg *config.Config, deps Dependencies, log *logger.Logger) *Service {
	s := &Service{
		router:      mux.NewRouter(),
		log:         log,
		credentials: deps.Credentials,
		sessions:    deps.Sessions,
		tokens:      deps.Tokens,
		authorizer:  deps.Authorizer,
		ledger:      deps.Ledger,
		metrics:     NewMetrics(),
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewUserRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize)
	}

	s.setupRoutes()
	s.setupMiddleware()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Service) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("Starting API server")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Stopping API server")
	return s.server.Shutdown(ctx)
}

// setupRoutes sets up the routing
func (s *Service) setupRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/users/register", s.handleRegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/system-info", s.handleSystemInfo).Methods(http.MethodGet)

	// Authenticated routes
	api.HandleFunc("/auth/logout", s.requireAuth(s.handleLogout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)

	// Role-scoped routes
	api.HandleFunc("/devices", s.requireAuth(s.requireAction(auth.ActionListDevices, s.handleListDevices))).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.requireAuth(s.requireAction(auth.ActionRegisterDevice, s.handleRegisterDevice))).Methods(http.MethodPost)
	api.HandleFunc("/health-records", s.requireAuth(s.requireAction(auth.ActionAddHealthRecord, s.handleAddHealthRecord))).Methods(http.MethodPost)
	api.HandleFunc("/health-records", s.requireAuth(s.requireAction(auth.ActionListHealthRecords, s.handleListHealthRecords))).Methods(http.MethodGet)
	api.HandleFunc("/health-records/patient/{patientId}", s.requireAuth(s.requireAction(auth.ActionListPatientRecords, s.handleHealthRecordsByPatient))).Methods(http.MethodGet)
}

// setupMiddleware sets up middleware
func (s *Service) setupMiddleware() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.loggingMiddleware)
}
