package worker

import (
	"context"
	"encoding/json"

	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	QueueCajaMayor = "jobs:caja_mayor"
	QueueEmail     = "jobs:email"

	JobCajaMayor   = "caja_mayor"
	JobResumenRRHH = "resumen_rrhh"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ResumenJobPayload asks the email worker to mail a finalized month summary.
type ResumenJobPayload struct {
	ResumenID uuid.UUID `json:"resumen_id"`
}

// Dispatcher enqueues async jobs into Redis lists; the worker pool dequeues
// them via BRPOP. It is the service.Encolador of the running server.
type Dispatcher struct {
	rdb *redis.Client
}

var _ service.Encolador = (*Dispatcher)(nil)

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarReintento queues a best-effort caja mayor write for completion.
func (d *Dispatcher) EncolarReintento(ctx context.Context, r service.Reintento) error {
	return d.enqueue(ctx, QueueCajaMayor, JobCajaMayor, r)
}

// EncolarResumenRRHH queues the e-mail of a finalized month summary.
func (d *Dispatcher) EncolarResumenRRHH(ctx context.Context, resumenID uuid.UUID) error {
	return d.enqueue(ctx, QueueEmail, JobResumenRRHH, ResumenJobPayload{ResumenID: resumenID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}
