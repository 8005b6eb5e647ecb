package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/game"
	"github.com/unotable/uno-server-go/internal/repository"
	"github.com/unotable/uno-server-go/internal/room"
	"github.com/unotable/uno-server-go/internal/server"
	"github.com/unotable/uno-server-go/internal/session"
	"github.com/unotable/uno-server-go/internal/user"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

const shutdownTimeout = 10 * time.Second

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting UNO server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("UNO server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in memory otherwise.
	var (
		users user.UserStore
		stats user.StatsStore
	)
	if cfg.Database.URL != "" {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		poolStats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", poolStats.TotalConns()),
			zap.Int32("idle_conns", poolStats.IdleConns()),
		)
		users = repository.NewUserRepository(db)
		stats = repository.NewStatsRepository(db)
	} else {
		logger.Warn("no database configured; accounts and stats are kept in memory")
		store := user.NewMemoryStore()
		users, stats = store, store
	}

	userMgr := user.NewManager(users, stats, cfg.Validation, logger)

	sessionMgr := session.NewManager(cfg.Server.LeasePeriod, cfg.Server.MaxSessions, logger)
	logger.Info("session manager initialized",
		zap.Duration("lease_period", cfg.Server.LeasePeriod),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
	)

	hub := server.NewHub(logger)

	roomOpts := []room.ManagerOption{room.WithResultRecorder(userMgr)}
	if cfg.Game.ReplayDir != "" {
		roomOpts = append(roomOpts, room.WithReplayRecorder(game.NewReplayRecorder(logger.Named("replay"), cfg.Game.ReplayDir)))
		logger.Info("recording replays", zap.String("directory", cfg.Game.ReplayDir))
	}
	roomMgr := room.NewManager(cfg.Game, hub, logger, roomOpts...)

	dispatcher := server.NewDispatcher(hub, roomMgr, sessionMgr, userMgr, cfg.Server.WebSocket, logger)
	sessionMgr.OnExpire(dispatcher.ExpireSession)

	api := server.NewAPI(dispatcher, hub, roomMgr, sessionMgr, userMgr, logger)
	httpServer := server.NewHTTPServer(cfg.Server.WebSocket, api.Handler(cfg.Server.WebSocket))

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, server.NewLobbyServer(roomMgr, userMgr, logger), logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		sessionMgr.CleanupExpiredSessions(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")

		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
		grpcServer.GracefulStop()

		roomMgr.CloseAll()
		sessionMgr.CloseAll()
		return nil
	})

	logger.Info("UNO server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	return g.Wait()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
