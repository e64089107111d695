// Command server runs the reward economy API and its box sweeps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/aimd54/reward-economy/internal/api/middleware"
	"github.com/aimd54/reward-economy/internal/api/rewards"
	"github.com/aimd54/reward-economy/internal/cache"
	"github.com/aimd54/reward-economy/internal/catalog"
	"github.com/aimd54/reward-economy/internal/config"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
	"github.com/aimd54/reward-economy/internal/service/boxes"
	"github.com/aimd54/reward-economy/internal/service/economy"
	"github.com/aimd54/reward-economy/internal/service/leaderboard"
	"github.com/aimd54/reward-economy/internal/service/reconcile"
	"github.com/aimd54/reward-economy/internal/service/scheduler"
	"github.com/aimd54/reward-economy/internal/service/settings"
	"github.com/aimd54/reward-economy/internal/service/streak"
	"github.com/aimd54/reward-economy/internal/service/tasks"
	"github.com/aimd54/reward-economy/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()

	err = run(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
	closeLog(log, os.Stderr)
	if err != nil {
		os.Exit(1)
	}
}

// closeLog flushes the log output. Its failure can only be reported to stderr.
func closeLog(log io.Closer, stderr io.Writer) {
	if err := log.Close(); err != nil {
		fmt.Fprintf(stderr, "failed to close log output: %v\n", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if cfg.Database.Postgres.Migrate {
		if err := repository.RunMigrations(cfg.Database.Postgres.URL(), log); err != nil {
			return err
		}
	} else if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis")
		}
	}()
	log.Info().Str("host", cfg.Database.Redis.Host).Int("port", cfg.Database.Redis.Port).Msg("Connected to Redis")

	store := repository.NewStore(db)

	definitions, err := catalog.Default()
	if err != nil {
		return err
	}
	if err := catalog.Seed(store.WithContext(ctx), definitions, log.Component("catalog")); err != nil {
		return err
	}

	// Config.Validate already rejected an unknown timezone.
	loc, _ := cfg.Scheduler.GetLocation()

	settingsService := settings.NewService(store.Settings, redisCache, cfg.Settings.CacheTTL(), log.Component("settings"))
	boxService := boxes.NewService(store, settingsService, loc, log.Component("boxes"))
	taskService := tasks.NewService(store, log.Component("tasks"))
	badgeService := badges.NewService(store.Badges, log.Component("badges"))
	economyService := economy.NewService(
		store,
		settingsService,
		streak.NewTracker(loc),
		boxService,
		taskService,
		badgeService,
		log.Component("economy"),
	)
	leaderboardService := leaderboard.NewService(
		store.Accounts,
		store.Badges,
		redisCache,
		cfg.Settings.LeaderboardTTL(),
		log.Component("leaderboard"),
	)

	reconciler := reconcile.NewService(store, 0, log.Component("reconcile"))
	sched := scheduler.NewService(&cfg.Scheduler, boxService, reconciler, redisCache, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	auth := middleware.NewAuthenticator(&cfg.Auth, economyService, log.Component("auth"))
	router := rewards.NewRouter(rewards.RouterDeps{
		Handler: rewards.NewHandler(economyService, leaderboardService, log.Component("api")),
		Auth:    auth.Middleware(),
		Metrics: cfg.Metrics.Prometheus,
		Checks: map[string]rewards.HealthChecker{
			"database": db,
			"redis":    redisCache,
		},
	}, middleware.Logging(log.Component("http")))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
