package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/staff-account-service/internal/api/http"
	"github.com/spec-kit/staff-account-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-account-service/internal/auth"
	"github.com/spec-kit/staff-account-service/internal/config"
	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/observability"
	"github.com/spec-kit/staff-account-service/internal/persistence"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/internal/repository/memory"
	"github.com/spec-kit/staff-account-service/internal/service"
	"github.com/spec-kit/staff-account-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

// storage groups the repositories of one backend.
type storage struct {
	uow         persistence.UnitOfWork
	accounts    repository.StaffAccountRepository
	tokens      repository.RefreshTokenRepository
	history     repository.PasswordHistoryRepository
	permissions repository.PermissionRepository
}

func openStorage(pg *persistence.Postgres) storage {
	if !pg.Enabled() {
		store := memory.NewStore(memory.DefaultPermissions()...)
		return storage{
			uow:         memory.NewUnitOfWork(store),
			accounts:    memory.NewStaffAccountRepository(store),
			tokens:      memory.NewRefreshTokenRepository(store),
			history:     memory.NewPasswordHistoryRepository(store),
			permissions: memory.NewPermissionRepository(store),
		}
	}
	pool := pg.PoolHandle()
	return storage{
		uow:         persistence.NewPgxUnitOfWork(pool),
		accounts:    repository.NewStaffAccountRepository(pool),
		tokens:      repository.NewRefreshTokenRepository(pool),
		history:     repository.NewPasswordHistoryRepository(pool),
		permissions: repository.NewPermissionRepository(pool),
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	var transports []events.Bus
	readiness := map[string]handlers.Pinger{}
	if pg.Enabled() {
		readiness["postgres"] = pg
	}
	if cfg.Events.RedisEnabled {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		transports = append(transports, events.NewRedisStreamPublisher(redis.Client, cfg.Events.RedisStream))
		readiness["redis"] = redis
	}
	worker.StartSecurityWorker(service.NewSecurityMonitor(dispatcher, logger, metrics))
	bus := events.NewBus(dispatcher, transports...)

	store := openStorage(pg)
	passwords := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	revocation := service.NewRevocationService(store.tokens, bus, nil)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UnitOfWork:      store.uow,
		StaffAccounts:   store.accounts,
		RefreshTokens:   store.tokens,
		PasswordHistory: store.history,
		Revocation:      revocation,
		Passwords:       passwords,
		TokenHasher:     auth.SHA3TokenHasher{},
		Bus:             bus,
		Logger:          logger,
		Metrics:         metrics,
	})
	staffService := service.NewStaffAccountService(service.StaffAccountDependencies{
		UnitOfWork:      store.uow,
		StaffAccounts:   store.accounts,
		PasswordHistory: store.history,
		Permissions:     store.permissions,
		Revocation:      revocation,
		Passwords:       passwords,
		Bus:             bus,
		Logger:          logger,
		Metrics:         metrics,
	})

	if err := bootstrapAdmin(ctx, cfg.Bootstrap, staffService, logger); err != nil {
		return err
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, tokenManager),
		StaffAccounts:  handlers.NewStaffAccountHandler(staffService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenManager, store.accounts),
		Metrics:        metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	return g.Wait()
}

// bootstrapAdmin creates the configured administrator on first start. The
// temporary password is only ever written to the log.
func bootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, staff *service.StaffAccountService, logger *zap.Logger) error {
	if cfg.Username == "" {
		return nil
	}
	var permissionIDs []string
	for _, p := range memory.DefaultPermissions() {
		switch p.Code.String() {
		case domain.PermissionStaffManage, domain.PermissionStaffSessionsRevoke:
			permissionIDs = append(permissionIDs, p.ID.String())
		}
	}

	resp, created, err := staff.Bootstrap(ctx, service.BootstrapCommand{
		Username:      cfg.Username,
		Email:         cfg.Email,
		PermissionIDs: permissionIDs,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Warn("bootstrap administrator created; change the password on first login",
			zap.String("username", resp.Username),
			zap.String("staff_account_id", resp.ID.String()),
			zap.String("temporary_password", resp.TemporaryPlaintextPassword),
		)
	}
	return nil
}
