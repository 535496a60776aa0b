package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sampled/internal/config"
	"sampled/internal/httpapi"
	"sampled/internal/manager"
)

func main() {
	// Flags with environment variable defaults
	defaultConfig := "sampled.yaml"
	if v := os.Getenv("SAMPLED_CONFIG"); v != "" {
		defaultConfig = v
	}
	configPath := flag.String("config", defaultConfig, "Path to config file (yaml|json|toml)")
	addr := flag.String("addr", os.Getenv("SAMPLED_ADDR"), "HTTP listen address, e.g. :8080 (overrides config)")
	cacheRoot := flag.String("cache-root", os.Getenv("SAMPLED_CACHE_ROOT"), "Cache root directory (overrides config)")
	replication := flag.Bool("replication", os.Getenv("SAMPLED_REPLICATION") == "1", "Serve recorded samples only, never query upstream")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	httpapi.SetLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", *configPath).Msg("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *cacheRoot != "" {
		cfg.CacheRoot = *cacheRoot
	}
	if *replication {
		cfg.Replication = true
	}
	cfg = cfg.ApplyDefaults()

	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	httpapi.SetCORSOptions(cfg.CORS.Enabled,
		cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)

	mgr, err := manager.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build model stacks")
	}
	defer mgr.Close()

	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("cache_root", cfg.CacheRoot).
			Bool("replication", cfg.Replication).Msg("sampled listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
