package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"student-portal/internal/config"
	"student-portal/internal/crypto"
	apphttp "student-portal/internal/http"
	"student-portal/internal/repository"
	"student-portal/internal/repository/memory"
	"student-portal/internal/repository/postgres"
	"student-portal/internal/repository/sqlite"
	"student-portal/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeStore, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open user store: %v", err)
	}
	defer closeStore()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	hasher, err := crypto.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup password hasher: %v", err)
	}
	userService := service.NewUserService(userRepo, hasher)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, logger, cfg.Server.StaticDir)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func openUserRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), func() { db.Close() }, nil
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres database")
		return postgres.NewUserRepository(pool), pool.Close, nil
	case config.DriverMemory:
		logger.Warn("using in-memory user store; accounts are lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
