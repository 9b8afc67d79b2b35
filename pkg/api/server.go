// Package api exposes the engine over HTTP: REST routes under /api, a
// read-only GraphQL endpoint, Prometheus scrape target, health probes,
// and a websocket event stream. One Server instance wraps one engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xepoctpat/H3X-sub004/pkg/auth"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/graphql"
	"github.com/xepoctpat/H3X-sub004/pkg/health"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
)

// Server is the HTTP surface over one engine.
type Server struct {
	cfg      config.ServerConfig
	engine   *engine.Engine
	logger   logging.Logger
	registry *metrics.Registry
	checker  *health.HealthChecker
	validate *validator.Validate

	gqlHandler  *graphql.Handler
	authHandler *auth.AuthHandler
	jwtManager  *auth.JWTManager
	operators   *auth.OperatorStore
	apiKeys     *auth.APIKeyStore
	limiter     *rateLimiter

	hub        *hub
	httpServer *http.Server
	startTime  time.Time
	stopCh     chan struct{}
	version    string
}

// NewServer wires a server around an engine. Auth routes and clearance
// enforcement switch on when the config carries an auth secret; without
// one the server is open and every caller holds full clearance.
func NewServer(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("api: engine is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("api"))

	s := &Server{
		cfg:       opts.Config,
		engine:    opts.Engine,
		logger:    logger,
		registry:  opts.Metrics,
		checker:   opts.Health,
		validate:  validator.New(),
		apiKeys:   opts.APIKeys,
		limiter:   newRateLimiterFromEnv(logger),
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
		version:   opts.Version,
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.checker == nil {
		s.checker = health.NewHealthChecker()
	}

	if opts.Config.AuthSecret != "" {
		jwtManager, err := auth.NewJWTManager(opts.Config.AuthSecret, 15*time.Minute, 7*24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("api: %w", err)
		}
		s.jwtManager = jwtManager

		s.operators = opts.Operators
		if s.operators == nil {
			s.operators = auth.NewOperatorStore()
		}
		if s.apiKeys == nil {
			keys, err := auth.NewAPIKeyStoreWithSecret([]byte(opts.Config.AuthSecret))
			if err != nil {
				return nil, fmt.Errorf("api: %w", err)
			}
			s.apiKeys = keys
		}
		s.authHandler = auth.NewAuthHandler(s.operators, jwtManager)
	}

	schema, err := graphql.BuildSchema(opts.Engine, graphql.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("api: build graphql schema: %w", err)
	}
	s.gqlHandler = graphql.NewHandler(schema)

	s.hub = newHub(s)
	return s, nil
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Probes and scrape target
	mux.HandleFunc("/health", s.checker.HTTPHandler())
	mux.HandleFunc("/health/ready", s.checker.ReadinessHandler())
	mux.HandleFunc("/health/live", s.checker.LivenessHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(
		s.metricsGatherer(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))

	// Engine REST surface
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/nodes", s.handleNodes)
	mux.HandleFunc("/api/nodes/", s.handleNode)
	mux.HandleFunc("/api/patches", s.handlePatches)
	mux.HandleFunc("/api/patches/", s.handlePatch)
	mux.HandleFunc("/api/actions", s.handleActions)
	mux.HandleFunc("/api/actions/validate", s.handleActionValidate)
	mux.HandleFunc("/api/actions/queue", s.handleQueue)
	mux.HandleFunc("/api/actions/queue/drain", s.handleQueueDrain)
	mux.HandleFunc("/api/mappings", s.handleMappings)
	mux.HandleFunc("/api/mappings/", s.handleMapping)
	mux.HandleFunc("/api/audit", s.handleAudit)
	mux.HandleFunc("/api/audit/export", s.handleAuditExport)

	// GraphQL and the event stream
	mux.HandleFunc("/graphql", s.handleGraphQL)
	mux.HandleFunc("/ws", s.handleSocket)

	// Operator auth, only when a secret is configured
	if s.authHandler != nil {
		mux.Handle("/auth/", s.authHandler)
	}

	var handler http.Handler = mux
	handler = s.rateLimitMiddleware(handler)
	handler = s.clearanceMiddleware(handler)
	handler = s.bodySizeLimitMiddleware(handler, maxRequestBytes)
	handler = s.corsMiddleware(handler)
	handler = s.metricsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start runs the server until Shutdown or a listener error. The hub,
// the status push ticker, and the system metrics ticker run alongside.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	go s.hub.run()
	go s.hub.streamEngineEvents()
	go s.hub.pushStatusPeriodically(s.cfg.StatusPushInterval)
	go s.updateSystemMetricsPeriodically()

	s.logger.Info("api server listening",
		logging.String("addr", s.cfg.Addr),
		logging.Bool("auth", s.jwtManager != nil),
	)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, closes websocket clients, and
// stops the background tickers.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCh)
	s.hub.shutdown()
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// AuthEnabled reports whether clearance enforcement is on.
func (s *Server) AuthEnabled() bool {
	return s.jwtManager != nil
}

// Operators returns the operator store, nil when auth is disabled.
// Callers use it to seed bootstrap credentials before Start.
func (s *Server) Operators() *auth.OperatorStore {
	return s.operators
}

// APIKeys returns the API key store, nil when auth is disabled.
func (s *Server) APIKeys() *auth.APIKeyStore {
	return s.apiKeys
}
