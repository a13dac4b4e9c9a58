// Package app assembles the bot: configuration, storage, the Slack client,
// the scheduler and the HTTP server, with graceful shutdown on SIGINT/SIGTERM.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/config"
	"github.com/anshMconsultadd/timesheet-bot/internal/logger"
	"github.com/anshMconsultadd/timesheet-bot/internal/scheduler"
	"github.com/anshMconsultadd/timesheet-bot/internal/server"
	slackclient "github.com/anshMconsultadd/timesheet-bot/internal/slack"
	"github.com/anshMconsultadd/timesheet-bot/internal/store"
	"github.com/anshMconsultadd/timesheet-bot/internal/timesheet"
)

const shutdownTimeout = 10 * time.Second

// Run starts the bot and blocks until a termination signal arrives or the
// HTTP listener fails.
func Run(cfg config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	repo, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	exemptions := store.NewFileExemptions(cfg.ExemptionFile)
	slack := slackclient.NewClient(cfg.SlackBotToken, log)
	svc := timesheet.NewService(repo, exemptions, slack, cfg.Excluded(), cfg.Location(), log)

	sched := scheduler.New(svc, slack, cfg.Location(), cfg.ReminderHour,
		time.Duration(cfg.FollowUpDelay)*time.Second, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	srv := server.New(cfg, svc, slack, sched, log)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("http server failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Migrate brings the schema up to date and exits, for use from the CLI.
// store.Open runs the migration as part of connecting.
func Migrate(cfg config.Config) error {
	repo, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return repo.Close()
}
