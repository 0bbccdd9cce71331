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

	"sistema-servicios/internal/config"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/repository"
	"sistema-servicios/internal/router"
	"sistema-servicios/internal/service"
	"sistema-servicios/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Async side: caja mayor retries, summary mails and the reconciliation
	// cron share the services the HTTP layer uses, wired here (composition root).
	dispatcher := worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)
	smtpCB := infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())

	personaRepo := repository.NewPersonaRepository(db)
	cajaMayorRepo := repository.NewCajaMayorRepository(db)
	cajaMayorSvc := service.NewCajaMayorService(cajaMayorRepo)
	usoDevSvc := service.NewUsoDevolucionService(repository.NewUsoDevolucionRepository(db), personaRepo, cajaMayorSvc, cajaMayorRepo, dispatcher)
	depositoSvc := service.NewDepositoService(repository.NewDepositoRepository(db), repository.NewBancoRepository(db), cajaMayorSvc, cajaMayorRepo, dispatcher)
	rrhhSvc := service.NewRRHHService(repository.NewRRHHRepository(db), personaRepo, cfg.SalarioMinimo(), dispatcher)

	workerHandlers := &worker.WorkerHandlers{
		CajaMayor: worker.NewCajaMayorWorker(usoDevSvc, depositoSvc, rdb),
		Email:     worker.NewEmailWorker(rrhhSvc, mailer, smtpCB, rdb, cfg.PDFStoragePath),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	worker.StartReconciliationCron(ctx, worker.ReconciliationConfig{
		Depositos:     depositoSvc,
		UsoDevolucion: usoDevSvc,
	})

	r := router.New(ctx, cfg, db, rdb, dispatcher, smtpCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("env", cfg.Env).Msgf("sistema-servicios listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// stop workers and the cron before closing their connections
	cancel()
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: pretty console output in development, JSON in production.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
