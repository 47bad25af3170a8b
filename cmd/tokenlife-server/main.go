package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/cache"
	"github.com/MrEthical07/tokenlife/httpapi"
	"github.com/MrEthical07/tokenlife/identity"
	"github.com/MrEthical07/tokenlife/internal/config"
	"github.com/MrEthical07/tokenlife/jwt"
	promexport "github.com/MrEthical07/tokenlife/metrics/export/prometheus"
	"github.com/MrEthical07/tokenlife/password"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath string
		seed       string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&seed, "seed", "", "comma separated user:secret pairs for the in-memory identity store")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	hasher, err := password.NewBcrypt(cfg.DB.BcryptCost)
	if err != nil {
		log.Error("hasher_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var (
		resolver tokenlife.IdentityResolver
		checks   []func(context.Context) error
		closers  []func()
	)
	if cfg.DB.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
		pg, err := identity.NewPostgres(dbCtx, cfg.DB.DatabaseURL, hasher)
		dbCancel()
		if err != nil {
			log.Error("postgres_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		log.Info("postgres_connected")
		resolver = pg
		checks = append(checks, pg.Ping)
		closers = append(closers, pg.Close)
	} else {
		mem := identity.NewMemory(hasher)
		if err := seedMemory(mem, seed); err != nil {
			log.Error("identity_seed_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		log.Warn("identity_store_in_memory")
		resolver = mem
	}

	jwtCfg, err := cfg.JWT()
	if err != nil {
		log.Error("token_config_invalid", slog.String("err", err.Error()))
		os.Exit(1)
	}
	codec, err := jwt.NewManager(jwtCfg)
	if err != nil {
		log.Error("token_codec_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint() {
		log.Warn("config_lint", slog.String("code", w.Code), slog.String("msg", w.Message))
	}

	builder := tokenlife.New().
		WithConfig(engineCfg).
		WithCodec(codec).
		WithIdentityResolver(resolver).
		WithLogger(log)

	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			log.Error("redis_url_invalid", slog.String("err", err.Error()))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		store := cache.NewRedis(rdb, engineCfg.Cache.RedisPrefix, engineCfg.Cache.Retention)

		pingCtx, pingCancel := context.WithTimeout(rootCtx, 5*time.Second)
		err = store.Ping(pingCtx)
		pingCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		log.Info("redis_connected")
		builder = builder.WithCache(store)
		checks = append(checks, store.Ping)
		closers = append(closers, func() { _ = rdb.Close() })
	} else {
		log.Warn("token_cache_in_memory")
		builder = builder.WithCache(cache.NewMemory(cache.WithRetention(engineCfg.Cache.Retention)))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Error("engine_build_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("engine_initialized")

	var ready int32

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, "dependency unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promexport.Handler(engine))
	}
	mux.Handle("/", httpapi.NewRouter(engine, httpapi.Options{
		Logger:  log,
		Timeout: cfg.HTTP.WriteTimeout,
	}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()
	atomic.StoreInt32(&ready, 1)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}
	shutdownCancel()

	engine.Close()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// seedMemory parses "user:secret,user:secret". Seeded principals start
// unregistered.
func seedMemory(mem *identity.Memory, list string) error {
	if list == "" {
		return nil
	}
	for _, pair := range strings.Split(list, ",") {
		user, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || user == "" || secret == "" {
			return fmt.Errorf("malformed seed entry %q", pair)
		}
		if err := mem.Put(tokenlife.Principal{Username: user}, secret); err != nil {
			return fmt.Errorf("seed %s: %w", user, err)
		}
	}
	return nil
}
