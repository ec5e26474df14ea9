package cmd

import (
	"context"
	"drivemirror/internal/auth"
	"drivemirror/internal/config"
	"drivemirror/internal/daemon"
	"drivemirror/internal/feed"
	"drivemirror/internal/gateway"
	"drivemirror/internal/logger"
	"drivemirror/internal/monitor"
	"drivemirror/internal/repository"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon and monitor all stored tasks",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	store, err := repository.Open(cfg)
	if err != nil {
		return err
	}

	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := auth.NewDriveService(ctx, cfg)
	if err != nil {
		return err
	}
	gw := gateway.WithIgnore(gateway.NewDrive(svc, cfg.RetryAttempts, cfg.RetryDelay), cfg.IgnoreList)

	clock := clockwork.NewRealClock()

	f := feed.New(cfg.MessageBuffer, clock)
	go f.Run(ctx)

	runs := daemon.NewRunManager(ctx, clock)
	actions := daemon.NewActions(gw, store, cfg, f.Sink(), runs, clock)

	poller := monitor.NewPoller(gw, store.Tasks, f.Sink(), cfg.PollInterval, clock)
	if err := poller.Start(ctx); err != nil {
		return err
	}

	config.Watch(func(next *config.Config) {
		poller.SetInterval(next.PollInterval)
	}, func(err error) {
		logger.Log.Warn("ignoring invalid config change", zap.Error(err))
	})

	srv := daemon.NewServer(actions, poller, f, runs, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("drivemirror daemon started",
		zap.Int("port", cfg.DaemonPort),
		zap.String("store", cfg.StoreBackend),
		zap.Duration("poll_interval", cfg.PollInterval))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err = srv.Stop(shutdownCtx)
	cancel()
	runs.Wait()
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
