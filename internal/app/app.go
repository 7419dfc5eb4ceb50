// Package app wires catalogcore's components together and runs the
// process from an already-loaded configuration: infrastructure connections, the C1-C5
// component graph, and the HTTP server, with graceful shutdown on
// context cancellation.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/catalogcore/internal/config"
	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/internal/platform"
	"github.com/wisbric/catalogcore/internal/session"
	"github.com/wisbric/catalogcore/internal/telemetry"
	"github.com/wisbric/catalogcore/pkg/addon"
	"github.com/wisbric/catalogcore/pkg/cache"
	"github.com/wisbric/catalogcore/pkg/cachekv"
	"github.com/wisbric/catalogcore/pkg/configapi"
	"github.com/wisbric/catalogcore/pkg/configresolver"
	"github.com/wisbric/catalogcore/pkg/dataset"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

// Run connects to infrastructure, wires every component from cfg, and
// serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting catalogcore", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "catalogcore", "dev")
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	metricsReg := telemetry.NewMetricsRegistry()

	// C1: KV backend. Degrades to in-process automatically when RedisURL
	// is unset or unreachable.
	kvBackend := cachekv.NewBackend(ctx, cfg.RedisURL, cachekv.DefaultMaxEntries, logger)
	defer kvBackend.Close()

	// C2: cache façade over the KV backend.
	cacheFacade := cache.NewFacade(kvBackend, cfg.CacheVersion, logger)

	// C3: upstream client.
	upstreamTimeout, err := time.ParseDuration(cfg.UpstreamTimeout)
	if err != nil {
		return fmt.Errorf("parsing upstream timeout %q: %w", cfg.UpstreamTimeout, err)
	}
	upstreamClient, err := upstream.NewClient(upstream.Options{
		BaseURL:      cfg.UpstreamBaseURL,
		APIKey:       cfg.UpstreamAPIKey,
		AllowedHosts: cfg.UpstreamAllowedHosts,
		RPS:          cfg.UpstreamRPS,
		Timeout:      upstreamTimeout,
	}, cacheFacade, logger)
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}
	defer upstreamClient.Close()

	// C4: config store (Postgres when configured, in-memory otherwise),
	// resolver, session manager, and revocation list.
	var configStore configresolver.Store
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = platform.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsConfigDir); err != nil {
			return fmt.Errorf("running config migrations: %w", err)
		}
		configStore = platform.NewConfigStore(db)
		logger.Info("config resolver: using postgres store")
	} else {
		configStore = configresolver.NewInMemoryStore()
		logger.Info("config resolver: using in-memory store (DATABASE_URL not set)")
	}

	configCacheTTL, err := time.ParseDuration(cfg.ConfigCacheTTL)
	if err != nil {
		return fmt.Errorf("parsing config cache TTL %q: %w", cfg.ConfigCacheTTL, err)
	}
	credentialKey, err := decodeCredentialKey(cfg.CredentialAEADKey)
	if err != nil {
		return fmt.Errorf("decoding credential AEAD key: %w", err)
	}
	resolver := configresolver.New(configStore, configresolver.Config{
		MaxEntries:    cfg.ConfigCacheSize,
		TTL:           configCacheTTL,
		CredentialKey: credentialKey,
	}, logger)

	revocationSweepInterval, err := time.ParseDuration(cfg.RevocationSweep)
	if err != nil {
		return fmt.Errorf("parsing revocation sweep interval %q: %w", cfg.RevocationSweep, err)
	}
	revocation := configresolver.NewRevocationList()
	go revocation.RunSweepLoop(ctx, revocationSweepInterval)

	sessionSecret := cfg.SessionSigningKey
	if sessionSecret == "" {
		sessionSecret = devSessionSecret()
		logger.Warn("session: using auto-generated dev signing key (set SESSION_SIGNING_KEY in production)")
	}
	sessionMaxAge, err := time.ParseDuration(cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("parsing session max age %q: %w", cfg.SessionMaxAge, err)
	}
	sessionMgr, err := session.NewManager(sessionSecret, sessionMaxAge, revocation)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	// C5: bulk dataset engine.
	datasetRefreshInterval, err := time.ParseDuration(cfg.DatasetRefreshEach)
	if err != nil {
		return fmt.Errorf("parsing dataset refresh interval %q: %w", cfg.DatasetRefreshEach, err)
	}
	engine := dataset.NewEngine(dataset.Options{
		RatingsURL: cfg.DatasetRatingsURL,
		BasicsURL:  cfg.DatasetBasicsURL,
		MinVotes:   cfg.DatasetMinVotes,
		Interval:   datasetRefreshInterval,
	}, logger)

	switch cfg.Mode {
	case "refresher":
		// A refresher-only process just runs the periodic download/parse/
		// join/index loop and never serves traffic. The dataset it builds
		// stays in this process's memory; api processes run their own loop.
		engine.RunLoop(ctx)
		return nil
	case "api":
		go engine.RunLoop(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	// HTTP server.
	srv := httpserver.NewServer(cfg, logger, metricsReg, kvBackend)

	addonHandler := addon.NewHandler(resolver, engine, upstreamClient, logger)
	addonHandler.Mount(srv.AddonRouter)

	configAPIHandler := configapi.NewHandler(configapi.Dependencies{
		Store:         configStore,
		Resolver:      resolver,
		Sessions:      sessionMgr,
		Revocation:    revocation,
		Upstream:      upstreamClient,
		Engine:        engine,
		CredentialKey: credentialKey,
		Pepper:        cfg.CredentialPepper,
		Logger:        logger,
	})
	configAPIHandler.Mount(srv.APIRouter)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
