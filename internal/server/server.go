package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	_ "github.com/WilliamDrmrd/todo-app/docs"
	"github.com/WilliamDrmrd/todo-app/internal/config"
	"github.com/WilliamDrmrd/todo-app/internal/handlers"
	"github.com/WilliamDrmrd/todo-app/internal/logger"
	"github.com/WilliamDrmrd/todo-app/internal/middleware"
	"github.com/WilliamDrmrd/todo-app/internal/monitoring"
	"github.com/WilliamDrmrd/todo-app/internal/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// CacheStatsProvider is implemented by services that sit behind a cache.
type CacheStatsProvider interface {
	CacheStats(ctx context.Context) map[string]interface{}
}

type Dependencies struct {
	TodoService services.TodoService
	Health      *monitoring.HealthChecker
	Metrics     *monitoring.Metrics
}

type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

func New(cfg *config.Config, deps Dependencies, log *zap.Logger) *Server {
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthChecker()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.Component(log, "server"),
	}
	s.engine = s.buildEngine(deps, log)
	s.httpServer = &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) buildEngine(deps Dependencies, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.RecoveryWithLog(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(s.cfg.CORS))
	if s.cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(s.cfg.RateLimit).Middleware())
	}
	r.Use(deps.Metrics.Middleware())

	r.GET("/health", deps.Health.HealthHandler())
	r.GET("/health/ready", deps.Health.ReadinessHandler())
	r.GET("/health/live", deps.Health.LivenessHandler())

	r.GET("/metrics", deps.Metrics.Handler())
	r.GET("/metrics/cache", func(c *gin.Context) {
		body := gin.H{"system": deps.Metrics.System()}
		if p, ok := deps.TodoService.(CacheStatsProvider); ok {
			body["cache"] = p.CacheStats(c.Request.Context())
		} else {
			body["cache"] = gin.H{"enabled": false}
		}
		c.JSON(http.StatusOK, body)
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlers.NewTodoHandler(deps.TodoService, deps.Metrics, log).RegisterRoutes(r)

	return r
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run blocks until the server stops. A stop caused by Shutdown is not an error.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve is Run on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("http server listening", zap.String("addr", l.Addr().String()))
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
