package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/config"
	httpDelivery "github.com/buyercheck/backend/internal/delivery/http"
	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/infrastructure/cache"
	"github.com/buyercheck/backend/internal/infrastructure/highlight"
	"github.com/buyercheck/backend/internal/infrastructure/store"
	"github.com/buyercheck/backend/internal/usecase"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BuyerCheck API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := zap.L()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           a.router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("starting server",
			zap.String("port", port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("store", cfg.Store.Driver),
			zap.String("cache", cfg.Cache.Type))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// app is the fully wired server
type app struct {
	router  *gin.Engine
	closers []func() error
}

// Close releases the store and cache connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// newApp wires configuration into the store, cache, services and router
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	records, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	sessionCache, closeCache, err := openCache(cfg.Cache, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	board := highlight.NewBoard(cfg.Cache.TTL, logger)
	matcher := usecase.NewMatchingService(logger, usecase.MatchConfig{
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})
	sessions := usecase.NewSessionService(records, sessionCache, board, matcher, logger, usecase.SessionServiceConfig{
		TTL: cfg.Cache.TTL,
	})
	entities := usecase.NewEntityService(records, logger)
	entities.SetStoreObserver(sessions)

	backfilled, err := entities.BackfillNormalizedAddresses(ctx)
	if err != nil {
		a.Close()
		return nil, eris.Wrap(err, "backfill normalized addresses")
	}
	if backfilled > 0 {
		logger.Info("normalized addresses backfilled", zap.Int("records", backfilled))
	}

	handler := httpDelivery.NewHandler(entities, sessions, board, cfg.Observer, logger)
	a.router = httpDelivery.SetupRouter(cfg, handler, logger)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (domain.RecordStore, func() error, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), func() error { return nil }, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func openCache(cfg config.CacheConfig, logger *zap.Logger) (domain.CacheRepository, func() error, error) {
	switch cfg.Type {
	case "memory":
		c := cache.NewMemoryCache()
		return c, c.Close, nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
}
