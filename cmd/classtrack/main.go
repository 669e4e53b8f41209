// Package main is the entry point of the classtrack command-line client.
//
// The client talks to the content server over GraphQL and keeps the login
// session in Redis (or in memory with SESSION_BACKEND=memory, which only
// lasts for one invocation). Errors are printed as a single alert line on
// stderr and the process exits with status 1.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/classtrack/classtrack/config"
	"github.com/classtrack/classtrack/internal/application/session"
	"github.com/classtrack/classtrack/internal/infrastructure/external/content"
	"github.com/classtrack/classtrack/internal/infrastructure/persistence/redis"
	"github.com/classtrack/classtrack/internal/infrastructure/service"
	"github.com/classtrack/classtrack/internal/interface/cli"
	"github.com/classtrack/classtrack/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, cli.Alert(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg, stderr)

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewService(store, cfg.Content.Token, log)

	clientCfg := content.DefaultClientConfig(cfg.Content.Endpoint())
	clientCfg.Timeout = cfg.Content.RequestTimeout
	clientCfg.BreakerThreshold = cfg.Content.CircuitBreakerThreshold
	clientCfg.BreakerTimeout = cfg.Content.CircuitBreakerTimeout
	clientCfg.Tokens = sessions
	clientCfg.Logger = log
	client := content.NewClient(clientCfg)

	reader := service.NewContentReader(client)
	app := cli.NewApp(cli.Dependencies{
		Session:           sessions,
		Users:             reader,
		Classes:           reader,
		Attendance:        reader,
		UserGateway:       service.NewUserGateway(client),
		ClassGateway:      service.NewClassGateway(client),
		AttendanceGateway: service.NewAttendanceGateway(client),
		Threshold:         cfg.Attendance.CriticalThreshold,
		Logger:            log,
	})

	router := cli.NewRouter(cli.RouterConfig{
		Program: "classtrack",
		Out:     stdout,
		Logger:  log,
		Debug:   cfg.App.Debug,
	})
	app.Register(router)

	return router.Run(ctx, args)
}

// openSessionStore returns the configured session backend and its closer.
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Backend == config.SessionBackendMemory {
		return session.NewMemoryStore(), func() {}, nil
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	cache, err := redis.NewCache(ctx, redisCfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	closeFn := func() { _ = cache.Close() }
	return redis.NewSessionStore(cache, cfg.Session.Device, cfg.Session.TTL), closeFn, nil
}

func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	log := logger.New(logger.Options{
		Output:  w,
		Level:   level,
		Format:  logger.Format(cfg.Observability.LogFormat),
		Service: "classtrack",
	})
	slog.SetDefault(log)
	return log
}
