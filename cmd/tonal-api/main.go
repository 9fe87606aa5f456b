package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/tonal/internal/adapters/http"
	"github.com/PabloGalante/tonal/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/tonal/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/tonal/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/tonal/internal/adapters/storage/redis"
	"github.com/PabloGalante/tonal/internal/app/editor"
	"github.com/PabloGalante/tonal/internal/app/gateway"
	"github.com/PabloGalante/tonal/internal/config"
	"github.com/PabloGalante/tonal/internal/domain"
	"github.com/PabloGalante/tonal/internal/observability"
)

const firestorePurgeInterval = 10 * time.Minute

func main() {
	os.Exit(run())
}

// run owns every deferred cleanup; main only turns its result into an exit
// code.
func run() int {
	log := observability.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}
	observability.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transformerLog := observability.WithFields("component", "transformer", "transformer", cfg.Transformer)
	transformer, err := newTransformer(ctx, cfg)
	if err != nil {
		transformerLog.Error("error initializing transformer", "error", err)
		return 1
	}
	transformerLog.Info("transformer ready")

	cacheLog := observability.WithFields("component", "result_cache", "backend", cfg.CacheBackend)
	cache, closeCache, err := newResultCache(ctx, cfg)
	if err != nil {
		cacheLog.Error("error initializing result cache", "error", err)
		return 1
	}
	defer func() {
		if err := closeCache.Close(); err != nil {
			cacheLog.Warn("error closing result cache", "error", err)
		}
	}()
	cacheLog.Info("result cache ready", "ttl", cfg.CacheTTL.String())

	policy := gateway.CommitOnCurrent
	if cfg.InFlightPolicy == config.InFlightDiscard {
		policy = gateway.DiscardAfterReset
	}

	sessionStore := memstore.NewSessionStore(cfg.MaxHistory)
	gw := gateway.New(transformer, gateway.Options{
		Timeout:      cfg.TransformTimeout,
		Cache:        cache,
		CacheTTL:     cfg.CacheTTL,
		CacheTimeout: cfg.CacheTimeout,
		Policy:       policy,
	})
	svc := editor.NewService(sessionStore, gw)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("tonal API listening", "addr", srv.Addr, "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	code := 0
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			code = 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}

	log.Info("tonal API stopped", "sessions", svc.Sessions())
	return code
}

func newTransformer(ctx context.Context, cfg *config.Config) (domain.Transformer, error) {
	switch cfg.Transformer {
	case config.TransformerVertex:
		t, err := llm.NewVertexTransformer(ctx, llm.VertexConfig{
			Project:  cfg.GCPProjectID,
			Location: cfg.GCPLocation,
			Model:    cfg.ModelName,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransformerMistral:
		t, err := llm.NewMistralTransformer(llm.MistralConfig{
			APIKey: cfg.MistralAPIKey,
			URL:    cfg.MistralURL,
			Model:  cfg.MistralModel,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return llm.NewMockTransformer(), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noopCloser io.Closer = closerFunc(func() error { return nil })

// newResultCache returns a nil cache for the "none" backend.
func newResultCache(ctx context.Context, cfg *config.Config) (domain.ResultCache, io.Closer, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, noopCloser, nil

	case config.CacheRedis:
		client, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		cache, err := redisstore.New(redisstore.Config{
			Client:    client,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return cache, cache, nil

	case config.CacheFirestore:
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, err
		}
		go purgeExpired(ctx, store)
		return store, store, nil

	default:
		cache, err := memstore.NewResultCache(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		return cache, noopCloser, nil
	}
}

// purgeExpired removes expired Firestore cache documents until ctx ends.
func purgeExpired(ctx context.Context, store *firestorestore.Store) {
	log := observability.WithFields("component", "firestore_purge")
	ticker := time.NewTicker(firestorePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("firestore cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("firestore cache purged", "removed", n)
			}
		}
	}
}
