package worker

// caja_mayor_worker.go
// Completes the best-effort caja mayor entries (deposit egreso, reversal of a
// voided uso/devolución) that failed during the request. Both service calls
// are idempotent, so a job delivered twice or racing the reconciliation cron
// writes the entry at most once.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxIntentosCajaMayor = 3

type CajaMayorWorker struct {
	usoDevolucion service.UsoDevolucionService
	depositos     service.DepositoService
	rdb           *redis.Client
	backoff       time.Duration
}

func NewCajaMayorWorker(usoDevolucion service.UsoDevolucionService, depositos service.DepositoService, rdb *redis.Client) *CajaMayorWorker {
	return &CajaMayorWorker{
		usoDevolucion: usoDevolucion,
		depositos:     depositos,
		rdb:           rdb,
		backoff:       time.Second,
	}
}

// Process handles a single job:
//  1. Parse the service.Reintento payload
//  2. Call the idempotent completion for its origin, up to 3 attempts with
//     exponential backoff; domain errors (not found, conflict) are final
//  3. Exhausted or final failures go to dlq:jobs:caja_mayor
func (w *CajaMayorWorker) Process(ctx context.Context, raw json.RawMessage) {
	var r service.Reintento
	if err := json.Unmarshal(raw, &r); err != nil {
		log.Error().Err(err).Msg("caja_mayor_worker: invalid payload")
		SendToDLQ(ctx, w.rdb, QueueCajaMayor, JobCajaMayor, raw, "invalid payload: "+err.Error(), 0)
		return
	}

	completar, err := w.completador(r.Origen)
	if err != nil {
		log.Error().Str("origen", r.Origen).Msg("caja_mayor_worker: unknown origin")
		SendToDLQ(ctx, w.rdb, QueueCajaMayor, JobCajaMayor, raw, err.Error(), 0)
		return
	}

	intentos := 0
	err = withRetry(ctx, maxIntentosCajaMayor, w.backoff, func(attempt int) error {
		intentos = attempt + 1
		err := completar(ctx, r.ID)
		if err != nil && !service.EsErrorDeDominio(err) {
			log.Warn().
				Err(err).
				Int("attempt", intentos).
				Str("origen", r.Origen).
				Str("id", r.ID.String()).
				Msg("caja_mayor_worker: attempt failed, retrying")
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("origen", r.Origen).Str("id", r.ID.String()).Msg("caja_mayor_worker: giving up")
		SendToDLQ(ctx, w.rdb, QueueCajaMayor, JobCajaMayor, raw, err.Error(), intentos)
		return
	}
	log.Info().Str("origen", r.Origen).Str("id", r.ID.String()).Msg("caja_mayor_worker: entry completed")
}

func (w *CajaMayorWorker) completador(origen string) (func(context.Context, uuid.UUID) error, error) {
	switch origen {
	case service.ReintentoDeposito:
		return w.depositos.VincularMovimientoPendiente, nil
	case service.ReintentoAnulacion:
		return w.usoDevolucion.CompletarAnulacion, nil
	default:
		return nil, fmt.Errorf("origen desconocido %q", origen)
	}
}

// withRetry calls fn up to maxAttempts times, waiting base, 2*base… between
// attempts. Domain errors stop the loop at once.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastErr = fn(i)
		if lastErr == nil || service.EsErrorDeDominio(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
