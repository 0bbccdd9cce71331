package service

import (
	"context"

	"github.com/google/uuid"
)

// Reintento origins: which secondary caja mayor write must be completed.
const (
	ReintentoDeposito  = "deposito_bancario"
	ReintentoAnulacion = "anulacion_uso_devolucion"
)

// Reintento identifies a best-effort write that failed and must be retried.
type Reintento struct {
	Origen string    `json:"origen"`
	ID     uuid.UUID `json:"id"`
}

// Encolador hands work to the background workers. worker.Dispatcher
// implements it; a nil Encolador disables enqueueing.
type Encolador interface {
	EncolarReintento(ctx context.Context, r Reintento) error
	EncolarResumenRRHH(ctx context.Context, resumenID uuid.UUID) error
}
