package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the scheduled scrapes and reminders, the job worker and the metrics endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		otel, err := telemetry.SetupFromEnv(ctx, "eclassbot")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer otel.Shutdown(context.Background())

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		telemetry.InstrumentPerfStats(ctx, a.tel)

		cron := chrono.NewStandardCron(a.time, a.tel)
		err = cron.Cron(a.cfg.Schedule.ScrapeAll, func() {
			report, err := a.service.ScrapeAll(ctx)
			if err != nil {
				a.tel.ReportBroken("serve.scrape-all", err)
				return
			}
			slog.Info("scrape all finished", "failed", report.Failed)
		})
		if err != nil {
			return fmt.Errorf("schedule scrape_all: %w", err)
		}
		err = cron.Cron(a.cfg.Schedule.ClassReminders, func() {
			_, err := a.reminders.RunClassReminders(ctx, a.time.Now())
			if err != nil {
				a.tel.ReportBroken("serve.class-reminders", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule class reminders: %w", err)
		}
		err = cron.Cron(a.cfg.Schedule.DailyDigest, func() {
			_, err := a.reminders.RunDailyDigest(ctx, a.time.Now())
			if err != nil {
				a.tel.ReportBroken("serve.daily-digest", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule daily digest: %w", err)
		}
		cron.Start()
		defer cron.Stop()

		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			err := service.NewWorker(a.service).Run(ctx, a.queue)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.tel.ReportBroken("serve.worker", err)
			}
		}()

		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("serving metrics", "addr", server.Addr)
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.tel.ReportBroken("serve.metrics", err)
			}
		}()

		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		<-workerDone
		return nil
	},
}
