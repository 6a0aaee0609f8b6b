// Command authcore-server serves the auth API over HTTP, and optionally a
// gRPC health endpoint guarded by the session interceptors.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	ac "github.com/reweave/authcore"
	"github.com/reweave/authcore/config"
	authgrpc "github.com/reweave/authcore/grpc"
	"github.com/reweave/authcore/stores/fs"
	"github.com/reweave/authcore/stores/gae"
	gormstore "github.com/reweave/authcore/stores/gorm"
)

// stores bundles the three store interfaces a backend provides.
type stores interface {
	ac.IdentityStore
	ac.SessionStore
	ac.OneTimeStore
}

func main() {
	if err := run(); err != nil {
		slog.Error("authcore-server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	auth := &ac.Authenticator{
		Identities:   store,
		Sessions:     store,
		OneTime:      store,
		Sender:       &ac.ConsoleSender{Logger: logger},
		BaseURL:      cfg.BaseURL,
		CookieName:   cfg.CookieName,
		OTPTTL:       cfg.OTPTTL,
		MagicLinkTTL: cfg.MagicLinkTTL,
		ResetTTL:     cfg.ResetTTL,
		Logger:       logger,
	}
	auth.EnsureDefaults()

	handler := &ac.Handler{Auth: auth, HideSecrets: cfg.HideSecrets, Logger: logger}
	router := mux.NewRouter()
	handler.Register(router.PathPrefix(ac.DefaultPrefix).Subrouter())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer, err = startGRPC(cfg.GRPCAddr, auth, logger, errc)
		if err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown failed", "error", shutdownErr)
	}
	return err
}

func startGRPC(addr string, auth *ac.Authenticator, logger *slog.Logger, errc chan<- error) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	healthCheck := "/" + healthpb.Health_ServiceDesc.ServiceName + "/Check"
	interceptorConfig := authgrpc.NewPublicMethodsConfig(auth.SessionManager(), healthCheck)

	server := grpc.NewServer(
		grpc.UnaryInterceptor(authgrpc.UnaryAuthInterceptor(interceptorConfig)),
		grpc.StreamInterceptor(authgrpc.StreamAuthInterceptor(interceptorConfig)),
	)
	healthpb.RegisterHealthServer(server, health.NewServer())

	go func() {
		logger.Info("grpc server listening", "addr", addr)
		if err := server.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	return server, nil
}

func openStore(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	switch cfg.Store {
	case "sqlite", "postgres":
		db, err := openGorm(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return gormstore.NewStore(db), closeDB, nil
	case "datastore":
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		return gae.NewStore(client, cfg.DatastoreNamespace), func() { client.Close() }, nil
	default:
		store, err := fs.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// openGorm opens and migrates the SQL backend. SQLite gets a single
// connection so writes never contend for the database lock.
func openGorm(cfg *config.Config) (*gorm.DB, error) {
	dialector := sqlite.Open(cfg.DSN)
	if cfg.Store == "postgres" {
		dialector = postgres.Open(cfg.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Store, err)
	}
	if cfg.Store == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}
