package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agendadental/clinicdesk/internal/api/router"
	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/cache"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	appconfig "github.com/agendadental/clinicdesk/internal/config"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/agendadental/clinicdesk/internal/observability/metrics"
	"github.com/agendadental/clinicdesk/internal/patients"
	"github.com/agendadental/clinicdesk/internal/professionals"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

func main() {
	// Optional .env for local development; the real environment wins.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting clinicdesk",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deskMetrics := metrics.NewDeskMetrics(registry)

	backend := clinicapi.NewClient(cfg.BackendBaseURL, logger,
		clinicapi.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout}),
		clinicapi.WithObserver(deskMetrics),
	)

	notifier := notify.NewLogNotifier(logger)

	var mirror *cache.Mirror
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		mirror = cache.NewMirror(redis.NewClient(opts), cfg.MirrorTTL, nil)
		logger.Info("snapshot mirror enabled", "addr", cfg.RedisAddr, "ttl", cfg.MirrorTTL)
	}

	apptOpts := []appointments.ServiceOption{appointments.WithMetrics(deskMetrics)}
	if cfg.EnforceStatusTransitions {
		apptOpts = append(apptOpts, appointments.WithTransitionEnforcement())
	}
	if mirror != nil {
		apptOpts = append(apptOpts, appointments.WithMirror(mirror))
	}
	appointmentsSvc := appointments.NewService(backend, notifier, logger, apptOpts...)

	checker := appointments.NewChecker(backend, cfg.AvailabilityDebounce, logger)

	patientOpts := []patients.Option{patients.WithMetrics(deskMetrics)}
	if mirror != nil {
		patientOpts = append(patientOpts, patients.WithMirror(mirror))
	}
	patientsSvc := patients.NewService(backend, notifier, logger, patientOpts...)

	profOpts := []professionals.Option{professionals.WithMetrics(deskMetrics)}
	if mirror != nil {
		profOpts = append(profOpts, professionals.WithMirror(mirror))
	}
	professionalsSvc := professionals.NewService(backend, notifier, logger, profOpts...)

	warmCaches(logger, appointmentsSvc, patientsSvc, professionalsSvc)

	r := router.New(&router.Config{
		Logger:             logger,
		Appointments:       appointmentsSvc,
		Availability:       checker,
		Patients:           patientsSvc,
		Professionals:      professionalsSvc,
		Agenda:             backend,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	checker.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// warmCaches loads the snapshots concurrently before the server accepts
// traffic. A failed warm is logged, not fatal; the first request retries
// through the normal refresh path.
func warmCaches(logger *logging.Logger, appts *appointments.Service, pats *patients.Service, profs *professionals.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	warm := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"appointments", appts.Refresh},
		{"patients", pats.Refresh},
		{"professionals", profs.Refresh},
		{"estados_profesional", profs.RefreshEstados},
	}

	var wg sync.WaitGroup
	for _, w := range warm {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.fn(ctx); err != nil {
				logger.Warn("cache warm failed", "collection", w.name, "error", err)
				return
			}
			logger.Info("cache warmed", "collection", w.name)
		}()
	}
	wg.Wait()
}
