package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gathrio/gathrio/internal/config"
	"github.com/gathrio/gathrio/internal/db"
	"github.com/gathrio/gathrio/internal/notifications"
	"github.com/gathrio/gathrio/internal/observability"
	"github.com/gathrio/gathrio/internal/queue/worker"
	"github.com/gathrio/gathrio/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "gathrio-worker", cfg.OTLPEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewProm(registry)

	jobsRepo := postgres.NewJobsRepo(pool, metrics)

	notifier := buildNotifier(cfg, log)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  200 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, notifier, metrics, log)

	healthSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.WorkerPort),
		Handler: healthMux(w, registry),
	}

	go func() {
		err := healthSrv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	hctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(hctx)

	log.Info("worker shutdown complete")
}

func healthMux(w *worker.Worker, registry *prometheus.Registry) http.Handler {
	r := w.HealthRouter()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func buildNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	var inner notifications.Notifier

	if cfg.SMTPHost != "" {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			Sender:   cfg.SenderEmail,
		})
		log.Info("using smtp notifier", "host", cfg.SMTPHost)
	} else {
		inner = notifications.NewLogNotifier()
		log.Info("smtp not configured, using log notifier")
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{})
}
