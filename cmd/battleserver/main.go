// Package main provides the battle server binary: the combat engine behind a
// gRPC service, with PostgreSQL player saves, Redis encounter snapshots and
// a debug HTTP listener.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/vnbattle/internal/config"
	"github.com/cory-johannsen/vnbattle/internal/content"
	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/gameserver"
	"github.com/cory-johannsen/vnbattle/internal/observability"
	"github.com/cory-johannsen/vnbattle/internal/server"
	"github.com/cory-johannsen/vnbattle/internal/storage/postgres"
	"github.com/cory-johannsen/vnbattle/internal/storage/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file with VNB_* overrides")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("no env file loaded from %s", *envFile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	src := dice.NewCryptoSource()
	lc := server.NewLifecycle(logger)

	// Content
	contentStart := time.Now()
	bundle, err := content.Load(cfg.Content, dice.NewRoller(src, logger.Named("dice")), logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	lc.OnShutdown("lua", bundle.Close)
	if err := bundle.Check(cfg.Player); err != nil {
		logger.Fatal("content references do not resolve", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Strings("enemies", bundle.Templates.IDs()),
		zap.Strings("ai_domains", bundle.Policies.Domains()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// PostgreSQL
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	lc.OnShutdown("postgres", pool.Close)
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// Redis is optional; without it encounters do not survive a restart.
	var snapshots *redis.SnapshotStore
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redis.NewSnapshotStore(client, cfg.Redis.SnapshotTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable; encounter snapshots disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			snapshots = store
			lc.OnShutdown("redis", func() { _ = client.Close() })
			logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Engine
	metrics := observability.NewMetrics()
	mgr := combat.NewManager(cfg.Battle.Rules(), src, bundle.Combat(), logger.Named("combat"))
	mgr.SetObserver(metrics)
	mgr.SetIdleTimeout(cfg.GameServer.IdleTimeout)

	deps := gameserver.Deps{
		Manager:    mgr,
		Templates:  bundle.Templates,
		Policies:   bundle.Policies,
		Items:      bundle.Items,
		Statuses:   bundle.Statuses,
		Drops:      src,
		Players:    postgres.NewPlayerRepository(pool.DB()),
		Encounters: postgres.NewEncounterRepository(pool.DB()),
		NewPlayer:  cfg.Player,
		DevMode:    cfg.Battle.DevMode,
		Logger:     logger.Named("gameserver"),
	}
	if snapshots != nil {
		deps.Snapshots = snapshots
	}
	svc := gameserver.NewBattleService(deps)
	if n, err := svc.ResumeAll(ctx); err != nil {
		logger.Warn("resuming encounters", zap.Error(err))
	} else if n > 0 {
		logger.Info("resumed encounters", zap.Int("count", n))
	}
	if cfg.Battle.DevMode {
		logger.Warn("dev mode enabled: clients may force dice rolls")
	}

	// gRPC
	limiter := gameserver.NewSessionRateLimiter(gameserver.RateLimitConfig{
		ActionsPerSecond: cfg.GameServer.ActionsPerSecond,
		Burst:            cfg.GameServer.ActionBurst,
	})
	lc.OnShutdown("rate limiter", limiter.Stop)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(limiter.UnaryInterceptor(metrics.RateLimited)))
	gameserver.RegisterBattleServiceServer(grpcServer, svc)
	lis, err := net.Listen("tcp", cfg.GameServer.Addr())
	if err != nil {
		logger.Fatal("listening for grpc", zap.String("addr", cfg.GameServer.Addr()), zap.Error(err))
	}
	lc.Add("grpc", server.GRPCService(grpcServer, lis, shutdownGrace))

	// Debug HTTP
	if cfg.GameServer.DebugAddr != "" {
		router := gameserver.NewDebugRouter(gameserver.DebugConfig{
			Sessions: mgr,
			Metrics:  metrics.Handler(),
			Health: func(ctx context.Context) error {
				var errs []error
				errs = append(errs, pool.Health(ctx, 2*time.Second))
				if snapshots != nil {
					errs = append(errs, snapshots.Ping(ctx))
				}
				return errors.Join(errs...)
			},
		})
		debugLis, err := net.Listen("tcp", cfg.GameServer.DebugAddr)
		if err != nil {
			logger.Fatal("listening for debug http", zap.String("addr", cfg.GameServer.DebugAddr), zap.Error(err))
		}
		httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
		lc.Add("debug-http", server.HTTPService(httpServer, debugLis, shutdownGrace))
	}

	logger.Info("battle server ready",
		zap.String("grpc_addr", lis.Addr().String()),
		zap.String("debug_addr", cfg.GameServer.DebugAddr),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lc.Run(ctx); err != nil {
		logger.Error("battle server stopped with error", zap.Error(err))
	}
}
