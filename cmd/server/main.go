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

	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/broadcast"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/content"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/jason-s-yu/arena/internal/dice"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/handlers"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/jason-s-yu/arena/internal/settlement"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	rate, err := cfg.HouseRate()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := make(map[string]handlers.HealthChecker)

	// Ledger and mirror
	var (
		coins    ledger.Ledger
		fees     ledger.FeeAccumulator
		accounts handlers.AccountProvisioner
		mirror   game.Mirror
	)
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		pool, err := database.Connect(ctx, cfg.PostgresDSN(), int32(cfg.PGMaxConns))
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		pg := database.NewLedger(pool, cfg.StartingBalance)
		coins, fees, accounts = pg, pg, pg
		mirror = database.NewMatchStore(pool)
		health["postgres"] = pool
		logger.WithField("host", cfg.PGHost).Info("using postgres ledger")
	default:
		mem := ledger.NewMemory(cfg.StartingBalance)
		coins, fees = mem, mem
		logger.Warn("using in-memory ledger, balances are lost on restart")
	}

	// Optional Redis action log and reconciliation alerts
	var (
		actions game.ActionLog
		alerts  settlement.AlertSink
	)
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pub, err := cache.NewPublisher(rdb, cfg.HistorianQueueName, cfg.ReconciliationQueueName)
		if err != nil {
			return err
		}
		actions, alerts = pub, pub
		health["redis"] = pub
		logger.WithField("addr", cfg.RedisAddr).Info("publishing match actions to redis")
	}

	settler, err := settlement.New(&settlement.Config{
		Ledger:      coins,
		Fees:        fees,
		Alerts:      alerts,
		Logger:      logger,
		HouseRate:   rate,
		MaxAttempts: cfg.SettlementMaxAttempts,
		Backoff:     cfg.SettlementBackoff,
	})
	if err != nil {
		return fmt.Errorf("settlement: %w", err)
	}
	catalog, err := content.NewCatalog(0)
	if err != nil {
		return err
	}

	hub := broadcast.NewHub(logger)
	rooms := room.NewRegistry(hub, logger, room.Config{
		EmptyGrace:      cfg.RoomEmptyGrace,
		DisconnectGrace: cfg.DisconnectGrace,
	})
	engine, err := game.NewEngine(game.Deps{
		Rooms:       rooms,
		Ledger:      coins,
		Settler:     settler,
		Broadcaster: hub,
		Content:     catalog,
		Dice:        dice.New(nil),
		Mirror:      mirror,
		Actions:     actions,
		Logger:      logger,
	}, game.Config{
		RoundDuration: cfg.RoundDuration,
		IntroDelay:    cfg.IntroDelay,
		ResultsDelay:  cfg.ResultsDelay,
		QuestionCount: cfg.QuestionCount,
	})
	if err != nil {
		return fmt.Errorf("match engine: %w", err)
	}
	defer engine.Shutdown()
	rooms.OnDisconnectTimeout = engine.HandleDisconnectTimeout

	sessions, err := newSessions(cfg)
	if err != nil {
		return err
	}
	srv, err := handlers.NewServer(handlers.Options{
		Rooms:    rooms,
		Engine:   engine,
		Hub:      hub,
		Sessions: sessions,
		Accounts: accounts,
		Health:   health,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Program stopped cleanly")
	return nil
}

// newSessions uses configured keys when present. Without them a fresh key
// pair is generated, so tokens do not survive a restart.
func newSessions(cfg *config.Config) (*auth.Sessions, error) {
	if cfg.JWTPublicKey != "" {
		return auth.InitFromKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.TokenExpireTime)
	}
	return auth.Init(cfg.TokenExpireTime)
}
