// Package http assembles the gin router for the field and audit APIs and runs
// the API and metrics listeners.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/sobebarali/useHely-sub006/internal/audit/http"
	"github.com/sobebarali/useHely-sub006/internal/config"
	cryptoHTTP "github.com/sobebarali/useHely-sub006/internal/crypto/http"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
	"github.com/sobebarali/useHely-sub006/internal/metrics"
)

// readinessTimeout bounds each readiness probe.
const readinessTimeout = 2 * time.Second

// Server represents the HTTP server.
type Server struct {
	db       *sql.DB
	registry cryptoUseCase.KeyRegistry
	server   *http.Server
	router   *gin.Engine
	logger   *slog.Logger
}

// NewServer creates a new HTTP server. Routes are registered by SetupRouter.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes. meterProvider may be nil when
// metrics are disabled.
func (s *Server) SetupRouter(
	cfg *config.Config,
	auditHandler *auditHTTP.AuditHandler,
	fieldHandler *cryptoHTTP.FieldHandler,
	registry cryptoUseCase.KeyRegistry,
	meterProvider metric.MeterProvider,
) {
	s.registry = registry

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	tenants := v1.Group("/tenants/:tenant_id")
	{
		tenants.POST("/audit-entries", auditHandler.AppendHandler)
		tenants.GET("/audit-entries", auditHandler.ListHandler)
		tenants.GET("/audit-entries/:sequence_no", auditHandler.GetHandler)
		tenants.GET("/audit-chain/verify", auditHandler.VerifyHandler)

		tenants.POST("/fields", fieldHandler.ProtectHandler)
		tenants.GET("/fields/:id", fieldHandler.RevealHandler)
		tenants.PUT("/fields/:id", fieldHandler.ReplaceHandler)
	}

	s.router = router
}

// requestID tags every request with a UUIDv7 X-Request-Id unless the caller sent one.
func requestID() gin.HandlerFunc {
	return requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	}))
}

// GetHandler returns the router; tests drive it through httptest.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessProbe is one dependency checked by /ready.
type readinessProbe struct {
	name  string
	check func(ctx context.Context) error
}

func (s *Server) readinessProbes() []readinessProbe {
	probes := []readinessProbe{{
		name: "database",
		check: func(ctx context.Context) error {
			if s.db == nil {
				return errors.New("no database")
			}
			return s.db.PingContext(ctx)
		},
	}}
	if s.registry != nil {
		probes = append(probes, readinessProbe{
			name: "master_key",
			check: func(ctx context.Context) error {
				_, err := s.registry.GetActiveKey(ctx)
				return err
			},
		})
	}
	return probes
}

// readinessHandler reports ready once the database answers and an active master
// key is loaded. Probe errors are logged, never returned to the caller.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	components := gin.H{}
	status, code := "ready", http.StatusOK
	for _, probe := range s.readinessProbes() {
		if err := probe.check(ctx); err != nil {
			s.logger.Warn("readiness probe failed", slog.String("component", probe.name), slog.Any("error", err))
			components[probe.name] = "error"
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		components[probe.name] = "ok"
	}

	c.JSON(code, gin.H{"status": status, "components": components})
}
