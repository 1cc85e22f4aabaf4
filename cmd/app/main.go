package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/svg2pptx/internal/analyze"
	cfgpkg "github.com/local/svg2pptx/internal/config"
	"github.com/local/svg2pptx/internal/filetype"
	"github.com/local/svg2pptx/internal/limiter"
	logpkg "github.com/local/svg2pptx/internal/logger"
	"github.com/local/svg2pptx/internal/metrics"
	"github.com/local/svg2pptx/internal/orchestrator"
	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/pptx"
	"github.com/local/svg2pptx/internal/registry"
	"github.com/local/svg2pptx/internal/render"
	"github.com/local/svg2pptx/internal/statuscheck"
	"github.com/local/svg2pptx/internal/storage"
	"github.com/local/svg2pptx/internal/store"
	"github.com/local/svg2pptx/internal/strategy"
	"github.com/local/svg2pptx/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Analysis pipeline
	var analyzeOpts []analyze.Option
	if cfg.Analysis.IRAdjustment {
		analyzeOpts = append(analyzeOpts, analyze.WithIRAdjustment())
	}
	analyzer := analyze.New(analyzeOpts...)

	var recOpts []strategy.Option
	if reg, err := registry.Load(); err != nil {
		log.Warn().Err(err).Msg("filter registry unavailable, prerequisites disabled")
	} else {
		recOpts = append(recOpts, strategy.WithRegistry(reg))
	}
	recommender := strategy.NewRecommender(recOpts...)

	detector := pages.NewDetector(pages.Options{
		MinGroupChildren: cfg.Pages.MinGroupChildren,
		MaxPages:         cfg.Pages.MaxPages,
		SizeThreshold:    cfg.Pages.SizeThreshold,
	})

	// Renderer: external binary when configured, builtin otherwise.
	var renderer render.Renderer = render.NewBuiltin()
	if cfg.Renderer.Command != "" {
		renderer = render.NewExternal(render.ExternalOptions{
			Command: cfg.Renderer.Command,
			Timeout: cfg.Renderer.Timeout,
		})
	}
	log.Info().Str("renderer", renderer.Name()).Msg("renderer selected")

	writer := pptx.NewWriter(pptx.Options{})

	// Status store
	var statusStore store.StatusStore
	var redisPing statuscheck.RedisPinger
	if cfg.Redis.URL != "" {
		rs, err := store.NewRedisStatus(cfg.Redis.URL, cfg.Redis.StatusTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		statusStore = rs
		redisPing = redisPinger{rs}
	} else {
		log.Info().Msg("no REDIS_URL, using in-memory status store")
		statusStore = store.NewMemoryStatus()
	}
	defer statusStore.Close()

	// Optional S3 package store
	var packages *storage.PackageStore
	if cfg.Storage.S3Bucket != "" {
		ps, err := storage.NewPackageStore(context.Background(),
			cfg.Storage.S3Bucket, cfg.Storage.EncryptPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 package store")
		}
		packages = ps
	}

	lim := limiter.New(limiter.Options{
		RatePerSecond: cfg.Server.RatePerSecond,
		Burst:         cfg.Server.RateBurst,
	}, cfg.Conversion.Concurrency*2)

	checker := statuscheck.New(statuscheck.Options{
		Redis:           redisPing,
		S3Bucket:        cfg.Storage.S3Bucket,
		RendererCommand: cfg.Renderer.Command,
		ResultDir:       cfg.Storage.ResultDir,
	})

	svc := web.New(web.Dependencies{
		Analyzer:    analyzer,
		Recommender: recommender,
		Detector:    detector,
		Renderer:    renderer,
		Writer:      writer,
		Sniffer:     filetype.New(),
		Status:      statusStore,
		Limiter:     lim,
		Checker:     checker,
		Packages:    packages,
		Fetcher:     web.NewFetcher(cfg.Server.MaxUploadMB),
	}, web.Options{
		MaxUploadMB: cfg.Server.MaxUploadMB,
		ResultDir:   cfg.Storage.ResultDir,
		CacheTTL:    cfg.Analysis.ReportCacheTTL,
		Convert: orchestrator.Options{
			Debug:        cfg.Conversion.Debug,
			Concurrency:  cfg.Conversion.Concurrency,
			Preference:   strategy.ParsePreference(cfg.Conversion.Preference),
			PageTimeout:  cfg.Conversion.PageTimeout,
			BreakerLimit: cfg.Conversion.BreakerLimit,
		},
	})

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}

// redisPinger adapts the redis-backed status store to the health checker.
type redisPinger struct{ rs *store.RedisStatus }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rs.Client().Ping(ctx).Err()
}
