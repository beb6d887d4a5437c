package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/adapters/cache/memory"
	rediscache "github.com/nulzo/concierge-bot/internal/adapters/cache/redis"
	"github.com/nulzo/concierge-bot/internal/adapters/membership"
	"github.com/nulzo/concierge-bot/internal/adapters/providers/factory"
	"github.com/nulzo/concierge-bot/internal/config"
	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/internal/core/services"
	"github.com/nulzo/concierge-bot/internal/logger"
	platformotel "github.com/nulzo/concierge-bot/internal/platform/otel"
	"github.com/nulzo/concierge-bot/internal/registry"
	"github.com/nulzo/concierge-bot/internal/server"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/internal/store/sqlite"

	// import providers to trigger init() registration
	_ "github.com/nulzo/concierge-bot/internal/adapters/providers/openai"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger.Initialize(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer logger.Sync()
	log := logger.Get()

	go CheckForUpdates()

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracer, err = platformotel.InitTracer("concierge-bot", log, os.Stdout)
		if err != nil {
			log.Fatal("tracer init failed", zap.Error(err))
		}
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Bot.DatabaseDSN)
	if err != nil {
		log.Fatal("storage init failed", zap.Error(err))
	}
	defer func() { _ = repo.Close() }()

	ctx := context.Background()

	// Settings precedence: built-in defaults, then persisted admin edits,
	// then explicit environment overrides.
	if err := repo.Settings().EnsureDefaults(ctx, settings.EncodedDefaults()); err != nil {
		log.Fatal("settings seed failed", zap.Error(err))
	}
	cfgStore := settings.NewStore(settings.DefaultSnapshot(), repo.Settings())

	persisted, err := repo.Settings().Fetch(ctx)
	if err != nil {
		log.Fatal("settings fetch failed", zap.Error(err))
	}
	onBadSetting := func(key string, err error) {
		log.Warn("ignoring bad setting", zap.String("key", key), zap.Error(err))
	}
	cfgStore.ApplyOverrides(persisted, onBadSetting)
	cfgStore.ApplyOverrides(cfg.SettingOverrides(), onBadSetting)

	snap := cfgStore.Snapshot()

	var cacheSvc ports.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = rediscache.NewRedisCache(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		}
	}
	if cacheSvc == nil {
		cacheSvc = memory.NewMemoryCache()
	}

	// The messaging transport plugs in its own lookup; standalone ops
	// deployments run with the static roster.
	lookup := membership.NewStaticLookup("left")

	gate, err := sponsor.NewService(snap.SponsorChannels, sponsor.Options{
		Retries:    cfg.Sponsor.Retries,
		Backoff:    time.Duration(cfg.Sponsor.BackoffSeconds * float64(time.Second)),
		FailClosed: snap.SponsorFailClosed || cfg.Sponsor.FailClosed,
	}, lookup, repo.Settings(), cacheSvc, log.Named("sponsor"))
	if err != nil {
		log.Fatal("sponsor gate init failed", zap.Error(err))
	}

	routerSvc := services.NewRouterService(log.Named("router"))
	providerFactory := factory.NewProviderFactory()

	providerNames := []string{snap.DefaultProvider}
	if snap.FallbackProvider != "" && snap.FallbackProvider != snap.DefaultProvider {
		providerNames = append(providerNames, snap.FallbackProvider)
	}
	for _, name := range providerNames {
		// every instance speaks the OpenAI-compatible dialect
		p, err := providerFactory.CreateProvider("openai", registry.ProviderSettings{
			Name:         name,
			APIKey:       snap.APIKey,
			BaseURL:      snap.BaseURL,
			Timeout:      snap.RequestTimeout,
			MaxRetries:   snap.MaxRetries,
			RetryBackoff: snap.RetryBackoff,
		})
		if err != nil {
			log.Fatal("provider init failed", zap.String("provider", name), zap.Error(err))
		}
		routerSvc.RegisterProvider(p)
		log.Info("provider registered", zap.String("provider", name))
	}
	if err := routerSvc.StartAll(); err != nil {
		log.Fatal("provider start failed", zap.Error(err))
	}
	defer routerSvc.CloseAll()

	adminIDs, err := cfg.AdminIDs()
	if err != nil {
		log.Fatal("bad admin id list", zap.Error(err))
	}

	chatSvc := services.NewChatService(cfgStore, routerSvc, gate, repo, adminIDs, log.Named("chat"))
	adminSvc := services.NewAdminService(cfgStore, gate, routerSvc, log.Named("admin"))

	srv := server.New(cfg, log, chatSvc, adminSvc, chatSvc)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("ops server listening", zap.String("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
}
