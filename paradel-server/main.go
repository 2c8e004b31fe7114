package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"paradel/internal/api"
	"paradel/internal/cache"
	"paradel/internal/config"
	"paradel/internal/db"
	"paradel/internal/logging"
)

const serverVersion = "0.1.0-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "import" {
		logger := logging.New("paradel-server", "info", os.Stderr)
		if err := runImport(os.Args[2:], logger); err != nil {
			logger.Fatal().Err(err).Msg("import failed")
		}
		return
	}

	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		port        = flag.String("port", "", "HTTP listen port (overrides config)")
		dbPath      = flag.String("db", "", "path to SQLite database (overrides config)")
		adminKeyOut = flag.String("admin-key-out", "", "write bootstrap admin API key to this file if no admin exists")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	applyFlags(&cfg, *port, *dbPath, *adminKeyOut)

	logger := logging.New("paradel-server", cfg.LogLevel, os.Stdout)

	database, err := db.OpenMigrated(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.Database).Msg("open database")
	}
	defer database.Close()

	if cfg.AdminKeyOut != "" {
		adminName, err := db.EnsureBootstrapAdmin(database, cfg.AdminKeyOut)
		if err != nil {
			logger.Fatal().Err(err).Msg("bootstrap admin")
		}
		if adminName != "" {
			logger.Info().Str("account", adminName).Str("key_out", cfg.AdminKeyOut).Msg("bootstrap admin created")
		}
	}

	render, entity, closeBins, err := cacheBins(cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Msg("cache bins")
	}
	defer closeBins()

	deps, err := api.NewDepsWithBins(database, serverVersion, logger, render, entity)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire services")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneRateLimits(ctx, deps, logger)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("addr", server.Addr).Str("version", serverVersion).Msg("paradel-server listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	<-shutdownDone
}

func applyFlags(cfg *config.Config, port, dbPath, adminKeyOut string) {
	if strings.TrimSpace(port) != "" {
		cfg.Port = strings.TrimSpace(port)
	}
	if strings.TrimSpace(dbPath) != "" {
		cfg.Database = strings.TrimSpace(dbPath)
	}
	if strings.TrimSpace(adminKeyOut) != "" {
		cfg.AdminKeyOut = strings.TrimSpace(adminKeyOut)
	}
}

// cacheBins builds the render and entity bins. With a Redis address they are
// shared by every server and by the import command; otherwise they are
// in-process LRUs.
func cacheBins(cc config.CacheConfig) (render, entity cache.Bin, closeFn func(), err error) {
	if strings.TrimSpace(cc.Redis.Addr) == "" {
		r, err := cache.NewMemoryBin(cache.RenderBin, cc.RenderSize)
		if err != nil {
			return nil, nil, nil, err
		}
		e, err := cache.NewMemoryBin(cache.EntityBin, cc.EntitySize)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, e, func() {}, nil
	}

	client, err := redisClient(cc.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn = func() { _ = client.Close() }
	r, err := cache.NewRedisBin(cache.RenderBin, client, cc.Redis.Prefix, cc.Redis.TTL)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	e, err := cache.NewRedisBin(cache.EntityBin, client, cc.Redis.Prefix, cc.Redis.TTL)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return r, e, closeFn, nil
}

func redisClient(rc config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rc.Addr, err)
	}
	return client, nil
}

func pruneRateLimits(ctx context.Context, deps api.Deps, logger zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := deps.Limiter.Prune(now.UTC()); n > 0 {
				logger.Debug().Int("buckets", n).Msg("rate limit buckets pruned")
			}
		}
	}
}

// runImport loads a fixture into the database. With Redis configured it
// invalidates the touched tags in the shared bins so running servers see
// the new content; otherwise the tags are logged for `paradel cache invalidate`.
func runImport(args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fromPath := fs.String("from", "", "path to YAML fixture file")
	dbPath := fs.String("db", "", "path to SQLite database (overrides config)")
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fromPath == "" {
		return errors.New("missing --from")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, "", *dbPath, "")

	database, err := db.OpenMigrated(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	store := db.NewStore(database, nil)
	shared := strings.TrimSpace(cfg.Cache.Redis.Addr) != ""
	if shared {
		render, entity, closeBins, err := cacheBins(cfg.Cache)
		if err != nil {
			return err
		}
		defer closeBins()
		registry := cache.NewRegistry(nil, logger)
		for _, b := range []cache.Bin{render, entity} {
			if err := registry.Register(b); err != nil {
				return err
			}
		}
		store.Cache = registry
	}

	tags, err := store.Import(context.Background(), *fromPath)
	if err != nil {
		return err
	}
	if !shared {
		logger.Warn().Strs("tags", tags).
			Msg("no shared cache configured; run `paradel cache invalidate` with these tags against running servers")
	}
	logger.Info().Str("from", *fromPath).Str("db", cfg.Database).Int("tags", len(tags)).Msg("import complete")
	return nil
}
