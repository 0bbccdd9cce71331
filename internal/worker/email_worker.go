package worker

// email_worker.go
// Processes jobs from QueueEmail: renders the PDF of a finalized RRHH month
// and mails it to the funcionario through the SMTP circuit breaker.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Mailer is satisfied by *infra.Mailer.
type Mailer interface {
	SendAdjunto(to, subject, body, nombreAdjunto string, adjunto []byte) error
}

type EmailWorker struct {
	rrhh           service.RRHHService
	mailer         Mailer
	cb             *infra.CircuitBreaker
	rdb            *redis.Client
	pdfStoragePath string
}

func NewEmailWorker(rrhh service.RRHHService, mailer Mailer, cb *infra.CircuitBreaker, rdb *redis.Client, pdfStoragePath string) *EmailWorker {
	return &EmailWorker{rrhh: rrhh, mailer: mailer, cb: cb, rdb: rdb, pdfStoragePath: pdfStoragePath}
}

// Process sends the summary. A month reopened after the job was queued is
// skipped; the next finalize queues a fresh job.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ResumenJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	id := payload.ResumenID.String()

	resumen, email, err := w.rrhh.ResumenParaEnvio(ctx, payload.ResumenID)
	if err != nil {
		if service.EsErrorDeDominio(err) {
			log.Info().Err(err).Str("resumen_id", id).Msg("email_worker: summary no longer sendable, skipping")
			return
		}
		log.Error().Err(err).Str("resumen_id", id).Msg("email_worker: load summary failed")
		SendToDLQ(ctx, w.rdb, QueueEmail, JobResumenRRHH, raw, err.Error(), 1)
		return
	}
	if email == "" {
		log.Warn().Str("resumen_id", id).Msg("email_worker: persona without email, skipping")
		return
	}

	pdfPath, err := infra.GenerateResumenPDF(resumen, w.pdfStoragePath)
	if err != nil {
		log.Error().Err(err).Str("resumen_id", id).Msg("email_worker: PDF generation failed")
		SendToDLQ(ctx, w.rdb, QueueEmail, JobResumenRRHH, raw, err.Error(), 1)
		return
	}
	adjunto, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Error().Err(err).Str("pdf", pdfPath).Msg("email_worker: read PDF failed")
		SendToDLQ(ctx, w.rdb, QueueEmail, JobResumenRRHH, raw, err.Error(), 1)
		return
	}

	subject := fmt.Sprintf("Resumen de haberes %02d/%d", resumen.Mes, resumen.Anio)
	body := fmt.Sprintf("Hola %s,\n\nAdjuntamos el resumen de tu liquidación de %02d/%d.\n",
		resumen.PersonaNombre, resumen.Mes, resumen.Anio)
	if resumen.TotalFinalGS != nil {
		body += "Total a cobrar: Gs. " + infra.FormatMonto(string(model.PYG), *resumen.TotalFinalGS) + "\n"
	}

	err = w.cb.Execute(func() error {
		return w.mailer.SendAdjunto(email, subject, body, infra.ResumenPDFName(resumen), adjunto)
	})
	if err != nil {
		log.Error().Err(err).Str("to", email).Str("resumen_id", id).Msg("email_worker: failed to send email")
		SendToDLQ(ctx, w.rdb, QueueEmail, JobResumenRRHH, raw, err.Error(), 1)
		return
	}
	log.Info().Str("to", email).Str("resumen_id", id).Msg("email_worker: resumen sent")
}
