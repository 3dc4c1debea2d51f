package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filechain/internal/config"
	"filechain/internal/domain"
	"filechain/internal/infra/crypto"
	"filechain/internal/infra/db"
	"filechain/internal/infra/filestore"
	httpinfra "filechain/internal/infra/http"
	"filechain/internal/infra/memstore"
	"filechain/internal/infra/metrics"
	"filechain/internal/infra/policyopa"
	"filechain/internal/infra/ratelimit"
	"filechain/internal/usecase"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type stores struct {
	chain  usecase.ChainStore
	atts   usecase.AttestationRepository
	health httpinfra.Pinger
	close  func() error
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return stores{chain: memstore.NewChain(), atts: memstore.NewAttestations(), close: func() error { return nil }}, nil
	case config.StorePostgres:
		store, err := db.NewStore(cfg)
		if err != nil {
			return stores{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
		return stores{
			chain:  db.NewChainRepository(store.DB),
			atts:   db.NewAttestationRepository(store.DB),
			health: store,
			close:  store.Close,
		}, nil
	default:
		chain, err := filestore.NewChainFile(cfg.ChainPath())
		if err != nil {
			return stores{}, err
		}
		sigs, err := filestore.NewSignatureFile(cfg.SignaturesPath())
		if err != nil {
			return stores{}, err
		}
		return stores{chain: chain, atts: sigs, close: func() error { return nil }}, nil
	}
}

func openPolicy(ctx context.Context, cfg config.Config) (usecase.PolicyEngine, error) {
	switch policy := strings.TrimSpace(cfg.SigningPolicy); policy {
	case "":
		return nil, nil
	case config.PolicyBuiltin:
		engine, err := policyopa.NewBuiltinEngine(ctx)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		engine, err := policyopa.NewEngineFromBundlePath(ctx, policy, "local")
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

func openLimiter(cfg config.Config, logger *slog.Logger) domain.RateLimiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			return limiter
		}
		logger.Warn("redis rate limiter unavailable, using in-memory limiter", "error", err)
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	encoding := domain.CanonicalEncoding(cfg.CanonicalEncoding)
	binding := domain.SignatureBinding(cfg.SignatureBinding)
	m := metrics.New()

	ledger, err := usecase.Open(ctx, usecase.LedgerConfig{
		Store:   st.chain,
		Hasher:  crypto.NewHasher(encoding),
		Logger:  logger.With("component", "ledger"),
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	m.SetChainLength(ledger.Len())
	if err := ledger.Verify(); err != nil {
		logger.Warn("persisted chain fails verification", "error", err)
	}

	signatures, err := usecase.NewSignatureStore(usecase.SignatureStoreConfig{
		Repo:    st.atts,
		Binding: binding,
		Logger:  logger.With("component", "signatures"),
		Metrics: m,
	})
	if err != nil {
		return err
	}
	policy, err := openPolicy(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load signing policy: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	deps := httpinfra.ServerDeps{
		Ledger:      ledger,
		Signatures:  signatures,
		Verifier:    crypto.NewSignatureService(encoding, binding),
		Metrics:     m,
		Health:      st.health,
		RateLimiter: openLimiter(cfg, logger),
		Policy:      policy,
		Logger:      logger.With("component", "http"),
	}
	if closer, ok := deps.RateLimiter.(io.Closer); ok {
		defer closer.Close()
	}
	srv := httpinfra.NewServerWithDeps(cfg, deps)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "encoding", encoding, "binding", binding, "blocks", ledger.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
