package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/sandbox/internal/api/http"
	"github.com/GriffinCanCode/sandbox/internal/api/middleware"
	"github.com/GriffinCanCode/sandbox/internal/api/ws"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/tracing"
	mathprovider "github.com/GriffinCanCode/sandbox/internal/providers/math"
	"github.com/GriffinCanCode/sandbox/internal/providers/system"
	"github.com/GriffinCanCode/sandbox/internal/reference"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/service"
	"github.com/GriffinCanCode/sandbox/internal/session"
	"github.com/GriffinCanCode/sandbox/internal/shared/utils"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config    *config.Config
	router    *gin.Engine
	http      *http.Server
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	sessions  *session.Manager
	reference *reference.Pool
	stopReap  context.CancelFunc
}

// NewServer builds every component from cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	opts, err := cfg.Sandbox.Options()
	if err != nil {
		return nil, err
	}
	codec, err := cfg.Sandbox.Codec()
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing sandbox server",
		zap.String("port", cfg.Server.Port),
		zap.String("pattern_mode", cfg.Sandbox.PatternMode),
		zap.String("codec", codec.Name()),
	)

	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(prom)
	tracer := tracing.New("sandbox", logger.Logger)

	registry := service.NewRegistry()
	if err := registry.Register(mathprovider.NewProvider()); err != nil {
		return nil, fmt.Errorf("register math provider: %w", err)
	}
	if err := registry.Register(system.NewProvider(1000, logger.Logger)); err != nil {
		return nil, fmt.Errorf("register system provider: %w", err)
	}

	runs := runner.New(runner.Config{
		Options: opts,
		Timeout: cfg.Sandbox.RunTimeout,
		Codec:   codec,
		History: runner.DefaultConfig().History,
	}, registry, logger).WithMetrics(metrics)

	circuit := resilience.DefaultSettings()
	failures := cfg.Session.HostFailures
	circuit.ReadyToTrip = func(c resilience.Counts) bool { return c.ConsecutiveFailures >= failures }
	circuit.Timeout = cfg.Session.HostCooldown
	sessions := session.NewManager(session.Config{
		Options:     opts,
		Timeout:     cfg.Sandbox.RunTimeout,
		Codec:       codec,
		Loopback:    cfg.Session.Loopback,
		MaxSessions: cfg.Session.MaxSessions,
		Circuit:     circuit,
	}, registry, logger).WithMetrics(metrics)
	reapCtx, stopReap := context.WithCancel(context.Background())
	go sessions.ReapEvery(reapCtx, cfg.Session.ReapInterval, cfg.Session.TTL)

	var pool *reference.Pool
	if cfg.Reference.Enabled {
		refCfg := reference.DefaultConfig()
		refCfg.Timeout = cfg.Sandbox.RunTimeout
		if pool, err = reference.NewPool(refCfg, cfg.Reference.PoolSize); err != nil {
			stopReap()
			return nil, fmt.Errorf("reference pool: %w", err)
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.BodyLimit(utils.MaxRequestSize))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Runner:    runs,
		Registry:  registry,
		Sessions:  sessions,
		Reference: pool,
		Metrics:   metrics,
		Gatherer:  prom,
		Tracer:    tracer,
		Logger:    logger.Logger,
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(sessions, metrics, logger.Logger)
	router.GET("/sessions/:id/stream", wsHandler.HandleStream)
	router.GET("/sessions/:id/host", wsHandler.HandleHost)

	logger.Info("Server initialized successfully")

	return &Server{
		config:    cfg,
		router:    router,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		sessions:  sessions,
		reference: pool,
		stopReap:  stopReap,
		http: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until Close is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drains in-flight requests, then tears down sessions and the
// reference pool.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	s.stopReap()
	s.sessions.CloseAll()
	if s.reference != nil {
		s.reference.Close()
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
