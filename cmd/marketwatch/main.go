package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/marketwatch/internal/api"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/datastore"
	"github.com/aleister1102/marketwatch/internal/differ"
	"github.com/aleister1102/marketwatch/internal/logger"
	"github.com/aleister1102/marketwatch/internal/monitor"
	"github.com/aleister1102/marketwatch/internal/notifier"
	"github.com/aleister1102/marketwatch/internal/scheduler"
	"github.com/aleister1102/marketwatch/internal/search"
	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("Marketwatch starting...")
	flags := ParseFlags()

	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	gCfg, err := config.LoadGlobalConfig(flags.GlobalConfigFile, bootLogger)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load global config using path '%s': %v", flags.GlobalConfigFile, err)
	}
	if flags.LogLevel != "" {
		gCfg.LogConfig.LogLevel = flags.LogLevel
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}
	zLogger.Info().Msg("Logger initialized successfully.")

	if err := config.ValidateConfig(gCfg); err != nil {
		zLogger.Fatal().Err(err).Msg("Configuration validation failed")
	}
	zLogger.Info().Msg("Configuration validated successfully.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, gCfg, flags, zLogger); err != nil {
		zLogger.Fatal().Err(err).Msg("Marketwatch stopped with an error")
	}
	zLogger.Info().Msg("Marketwatch finished.")
}

func run(ctx context.Context, gCfg *config.GlobalConfig, flags AppFlags, zLogger zerolog.Logger) error {
	repo, err := datastore.NewWatcherRepository(ctx, gCfg.StorageConfig, zLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			zLogger.Error().Err(err).Msg("Failed to close watcher repository")
		}
	}()

	provider, err := search.NewBlocketProvider(gCfg.SearchConfig, zLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize search provider: %w", err)
	}
	executor := search.NewExecutor(provider, gCfg.SearchConfig, zLogger)
	listingDiffer := differ.NewListingDiffer(gCfg.SearchConfig.SeenCapacity, zLogger)
	dispatcher := notifier.NewDefaultDispatcher(gCfg.NotificationConfig, zLogger)
	locks := monitor.NewWatcherMutexManager(zLogger)

	runner := monitor.NewRunner(repo, executor, listingDiffer, dispatcher, locks, gCfg.SchedulerConfig.RunTimeout(), zLogger)
	sched := scheduler.NewScheduler(gCfg.SchedulerConfig, gCfg.NotificationConfig, repo, runner, zLogger)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	var server *api.Server
	var serverErr <-chan error
	if gCfg.ServerConfig.Enabled && !flags.NoServer {
		server = api.NewServer(gCfg.ServerConfig, api.NewHandler(sched, zLogger).Routes(), zLogger)
		if serverErr, err = server.Start(); err != nil {
			shutdownScheduler(gCfg, sched, zLogger)
			return err
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		zLogger.Info().Msg("Received interrupt signal, initiating graceful shutdown...")
	case err, ok := <-serverErr:
		if ok && err != nil {
			zLogger.Error().Err(err).Msg("Management API failed")
			runErr = err
		}
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gCfg.ServerConfig.WriteTimeout())
		if err := server.Shutdown(shutdownCtx); err != nil {
			zLogger.Error().Err(err).Msg("Management API shutdown error")
		}
		cancel()
	}
	shutdownScheduler(gCfg, sched, zLogger)
	return runErr
}

func shutdownScheduler(gCfg *config.GlobalConfig, sched *scheduler.Scheduler, zLogger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), gCfg.SchedulerConfig.ShutdownTimeout())
	defer cancel()
	if err := sched.Stop(ctx); err != nil {
		zLogger.Warn().Err(err).Msg("Scheduler did not stop cleanly")
	}
}
