package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/WilliamDrmrd/todo-app/internal/cache"
	"github.com/WilliamDrmrd/todo-app/internal/config"
	"github.com/WilliamDrmrd/todo-app/internal/database"
	"github.com/WilliamDrmrd/todo-app/internal/logger"
	"github.com/WilliamDrmrd/todo-app/internal/monitoring"
	"github.com/WilliamDrmrd/todo-app/internal/repositories"
	"github.com/WilliamDrmrd/todo-app/internal/server"
	"github.com/WilliamDrmrd/todo-app/internal/services"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			skipMigrate, _ := cmd.Flags().GetBool("skip-migrate")
			return runServer(skipMigrate)
		},
	}
	cmd.Flags().Bool("skip-migrate", false, "Do not create or update the schema on startup")
	return cmd
}

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("todo-app", version)
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, *database.DatabasePool, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	pool, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg, appLogger))
	if err != nil {
		_ = appLogger.Sync()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, appLogger, pool, nil
}

func runMigrate() error {
	_, appLogger, pool, err := bootstrap()
	if err != nil {
		return err
	}
	defer appLogger.Sync()
	defer pool.Close()

	if err := pool.Migrate(); err != nil {
		return err
	}
	appLogger.Info("database schema is up to date")
	return nil
}

func runServer(skipMigrate bool) error {
	cfg, appLogger, pool, err := bootstrap()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if !skipMigrate {
		if err := pool.Migrate(); err != nil {
			pool.Close()
			return err
		}
	}

	health := monitoring.NewHealthChecker()
	health.Register("database", pool.HealthContext)

	var todoService services.TodoService = services.NewTodoService(
		repositories.NewTodoRepository(pool.DB),
		appLogger,
	)

	var todoCache cache.Cache
	if cfg.Cache.Enabled {
		var redisCache *cache.RedisCache
		if cfg.Cache.UseRedis {
			redisCache = cache.NewRedisCache(cache.CacheConfigFromConfig(cfg))
			if err := redisCache.Health(context.Background()); err != nil {
				appLogger.Warn("redis is unreachable, serving from memory until it recovers", zap.Error(err))
			}
		}
		todoCache = cache.NewMultiLevelCache(redisCache, cache.DefaultMultiLevelConfig(), appLogger)
		health.Register("cache", todoCache.Health)
		todoService = services.NewCachedTodoService(todoService, todoCache, services.CacheTTLsFromConfig(cfg.Cache), appLogger)
	}

	srv := server.New(cfg, server.Dependencies{
		TodoService: todoService,
		Health:      health,
		Metrics:     monitoring.NewMetrics(),
	}, appLogger)

	go func() {
		if err := srv.Run(); err != nil {
			appLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	appLogger.Info("todo-app started",
		zap.String("addr", srv.Addr()),
		zap.String("environment", cfg.Server.Environment),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	// Stop accepting requests before closing what the handlers depend on.
	operations := map[string]gfshutdown.Operation{
		"todo-app": func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				appLogger.Error("http server shutdown failed", zap.Error(err))
			}
			if todoCache != nil {
				if err := todoCache.Close(); err != nil {
					appLogger.Warn("cache close failed", zap.Error(err))
				}
			}
			return pool.Close()
		},
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.Server.ShutdownTimeout, operations)
	exitCode := <-wait
	appLogger.Info("todo-app stopped", zap.Int("exit_code", exitCode))
	if exitCode != 0 {
		log.Printf("shutdown finished with exit code %d", exitCode)
		_ = appLogger.Sync()
		os.Exit(exitCode)
	}
	return nil
}
