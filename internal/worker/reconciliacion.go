package worker

// reconciliacion.go
// Background goroutine that rescans the database for best-effort caja mayor
// entries still missing after the grace period: deposits without their egreso
// and voided uso/devolución operations without their reversal. It covers jobs
// that never reached Redis and jobs that ended in the DLQ.

import (
	"context"
	"time"

	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	reconciliacionTickInterval = 60 * time.Second
	reconciliacionGracia       = 2 * time.Minute
	reconciliacionBatchSize    = 50
)

// ReconciliationConfig holds all dependencies for the reconciliation goroutine.
type ReconciliationConfig struct {
	Depositos     service.DepositoService
	UsoDevolucion service.UsoDevolucionService
	Interval      time.Duration // defaults to 60s
	Gracia        time.Duration // defaults to 2m
}

// StartReconciliationCron launches the goroutine; it stops with ctx.
func StartReconciliationCron(ctx context.Context, cfg ReconciliationConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = reconciliacionTickInterval
	}
	if cfg.Gracia <= 0 {
		cfg.Gracia = reconciliacionGracia
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("reconciliacion: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconciliacion: shutting down")
				return
			case <-ticker.C:
				reconciliar(ctx, cfg)
			}
		}
	}()
}

// reconciliar runs one pass and returns how many entries it completed.
func reconciliar(ctx context.Context, cfg ReconciliationConfig) int {
	completados := 0

	depositos, err := cfg.Depositos.PendientesDeVinculo(ctx, cfg.Gracia, reconciliacionBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("reconciliacion: failed to query deposits")
	} else {
		completados += completarTodos(ctx, service.ReintentoDeposito, depositos, cfg.Depositos.VincularMovimientoPendiente)
	}

	anulaciones, err := cfg.UsoDevolucion.AnulacionesIncompletas(ctx, cfg.Gracia, reconciliacionBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("reconciliacion: failed to query voided operations")
	} else {
		completados += completarTodos(ctx, service.ReintentoAnulacion, anulaciones, cfg.UsoDevolucion.CompletarAnulacion)
	}

	if completados > 0 {
		log.Info().Int("count", completados).Msg("reconciliacion: caja mayor entries completed")
	}
	return completados
}

func completarTodos(ctx context.Context, origen string, ids []uuid.UUID, completar func(context.Context, uuid.UUID) error) int {
	n := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return n
		}
		if err := completar(ctx, id); err != nil {
			log.Warn().Err(err).Str("origen", origen).Str("id", id.String()).Msg("reconciliacion: completion failed")
			continue
		}
		n++
	}
	return n
}
