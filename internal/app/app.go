package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/godilite/assessment-server/internal/config"
	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/rest"
	"github.com/godilite/assessment-server/internal/service"
	"github.com/godilite/assessment-server/pkg/cache"
	dbbuilder "github.com/godilite/assessment-server/pkg/database"
	grpcsrv "github.com/godilite/assessment-server/pkg/grpc/server"
	httpsrv "github.com/godilite/assessment-server/pkg/http/server"
)

const (
	healthServiceName = "assessment"
	shutdownTimeout   = 10 * time.Second
)

type closableCache interface {
	cache.Cacher
	Close() error
}

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      closableCache
	httpServer *httpsrv.Server
	grpcServer *grpcsrv.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dialect, err := repository.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBDSN),
		dbbuilder.WithMaxOpenConns(cfg.DBMaxOpenConns),
		dbbuilder.WithMaxIdleConns(cfg.DBMaxIdleConns),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver), zap.Stringer("dialect", dialect))

	if cfg.DBAutoMigrate {
		if err := repository.EnsureSchema(ctx, dbPool, dialect); err != nil {
			_ = dbPool.Close()
			return nil, fmt.Errorf("schema setup failed: %w", err)
		}
		logger.Info("Assessment schema ensured")
	}

	var cacheClient closableCache = cache.Noop{}
	if cfg.CacheEnabled() {
		redisCache, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
		)
		if err != nil {
			_ = dbPool.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacheClient = redisCache
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("REDIS_ADDR not set, catalog cache disabled")
	}

	employeeRepo := repository.NewEmployeeRepository(dbPool, dialect)
	catalogRepo := repository.NewCatalogRepository(dbPool, dialect)
	assessmentRepo := repository.NewAssessmentRepository(dbPool, dialect)

	catalogService := service.NewCatalogService(catalogRepo, cacheClient, logger, cfg.CatalogCacheTTL, cfg.QuestionsPerCategory)
	assessmentService := service.NewAssessmentService(assessmentRepo, catalogService, logger)
	employeeService := service.NewEmployeeService(employeeRepo, logger)

	httpServer, err := httpsrv.New(
		httpsrv.WithPort(cfg.HTTPPort),
		httpsrv.WithLogger(logger),
		httpsrv.WithCORSOrigins(cfg.CORSAllowOrigins),
		httpsrv.WithLogging(true),
	)
	if err != nil {
		_ = cacheClient.Close()
		_ = dbPool.Close()
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	rest.NewHandlers(employeeService, catalogService, assessmentService, dbPool, time.Now(), logger).
		RegisterRoutes(httpServer.Router())

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithHealthServices(healthServiceName),
	)
	if err != nil {
		_ = httpServer.Shutdown(ctx)
		_ = cacheClient.Close()
		_ = dbPool.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		httpServer: httpServer,
		grpcServer: grpcServer,
	}, nil
}

// Run starts both servers and blocks until ctx is done, then shuts
// everything down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")

	a.httpServer.Start()
	a.grpcServer.Start()

	<-ctx.Done()

	a.logger.Info("application shutting down")
	a.grpcServer.SetServiceHealth(healthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error { return a.httpServer.Shutdown(gctx) })
	g.Go(func() error { return a.grpcServer.Shutdown(gctx) })
	shutdownErr := g.Wait()
	if shutdownErr != nil {
		a.logger.Warn("server shutdown incomplete", zap.Error(shutdownErr))
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	if shutdownErr == nil {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return shutdownErr
}

// HTTPAddr returns the REST listener address.
func (a *App) HTTPAddr() string {
	return a.httpServer.Addr().String()
}

// GRPCAddr returns the gRPC health listener address.
func (a *App) GRPCAddr() string {
	return a.grpcServer.Addr().String()
}
