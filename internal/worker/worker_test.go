package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeDepositos struct {
	service.DepositoService
	errs       []error // returned in order, then nil
	llamadas   int
	pendientes []uuid.UUID
	vinculados []uuid.UUID
}

func (f *fakeDepositos) VincularMovimientoPendiente(_ context.Context, id uuid.UUID) error {
	f.llamadas++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.vinculados = append(f.vinculados, id)
	return nil
}

func (f *fakeDepositos) PendientesDeVinculo(_ context.Context, _ time.Duration, _ int) ([]uuid.UUID, error) {
	return f.pendientes, nil
}

type fakeUsoDevolucion struct {
	service.UsoDevolucionService
	mu          sync.Mutex
	incompletas []uuid.UUID
	completadas []uuid.UUID
	err         error
}

func (f *fakeUsoDevolucion) CompletarAnulacion(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.completadas = append(f.completadas, id)
	return nil
}

func (f *fakeUsoDevolucion) AnulacionesIncompletas(_ context.Context, _ time.Duration, _ int) ([]uuid.UUID, error) {
	return f.incompletas, nil
}

type fakeRRHH struct {
	service.RRHHService
	resumen *dto.ResumenRRHHResponse
	email   string
	err     error
}

func (f *fakeRRHH) ResumenParaEnvio(_ context.Context, _ uuid.UUID) (*dto.ResumenRRHHResponse, string, error) {
	return f.resumen, f.email, f.err
}

type envio struct {
	to, subject, body, adjuntoNombre string
	adjunto                          []byte
}

type fakeMailer struct {
	enviados []envio
	err      error
}

func (m *fakeMailer) SendAdjunto(to, subject, body, nombre string, adjunto []byte) error {
	if m.err != nil {
		return m.err
	}
	m.enviados = append(m.enviados, envio{to, subject, body, nombre, adjunto})
	return nil
}

func reintentoPayload(t *testing.T, origen string, id uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(service.Reintento{Origen: origen, ID: id})
	require.NoError(t, err)
	return raw
}

// ── Dispatcher ───────────────────────────────────────────────────────────────

func TestDispatcher_EncolarReintento(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	d := NewDispatcher(rdb)
	id := uuid.New()

	require.NoError(t, d.EncolarReintento(ctx, service.Reintento{Origen: service.ReintentoDeposito, ID: id}))

	raw, err := rdb.RPop(ctx, QueueCajaMayor).Result()
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobCajaMayor, job.Type)

	var r service.Reintento
	require.NoError(t, json.Unmarshal(job.Payload, &r))
	assert.Equal(t, service.ReintentoDeposito, r.Origen)
	assert.Equal(t, id, r.ID)
}

func TestDispatcher_EncolarResumenRRHH(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, NewDispatcher(rdb).EncolarResumenRRHH(ctx, id))

	raw, err := rdb.RPop(ctx, QueueEmail).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobResumenRRHH, job.Type)

	var p ResumenJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, id, p.ResumenID)
}

// ── Worker pool ──────────────────────────────────────────────────────────────

type canalHandler chan json.RawMessage

func (h canalHandler) Process(_ context.Context, payload json.RawMessage) { h <- payload }

func TestWorkerPool_RoutesByQueue(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cajaMayor := make(canalHandler, 1)
	email := make(canalHandler, 1)
	StartWorkerPool(ctx, rdb, &WorkerHandlers{CajaMayor: cajaMayor, Email: email}, 1)

	id := uuid.New()
	require.NoError(t, NewDispatcher(rdb).EncolarResumenRRHH(ctx, id))

	select {
	case payload := <-email:
		var p ResumenJobPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		assert.Equal(t, id, p.ResumenID)
	case <-cajaMayor:
		t.Fatal("email job routed to the caja mayor handler")
	case <-time.After(3 * time.Second):
		t.Fatal("job was not processed")
	}
}

// ── CajaMayorWorker ──────────────────────────────────────────────────────────

func newTestCajaMayorWorker(rdb *redis.Client, dep *fakeDepositos, ud *fakeUsoDevolucion) *CajaMayorWorker {
	w := NewCajaMayorWorker(ud, dep, rdb)
	w.backoff = time.Millisecond
	return w
}

func TestCajaMayorWorker_RetriesTransientErrors(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	dep := &fakeDepositos{errs: []error{errors.New("db caida"), errors.New("db caida")}}
	w := newTestCajaMayorWorker(rdb, dep, &fakeUsoDevolucion{})
	id := uuid.New()

	w.Process(ctx, reintentoPayload(t, service.ReintentoDeposito, id))

	assert.Equal(t, 3, dep.llamadas)
	assert.Equal(t, []uuid.UUID{id}, dep.vinculados)
	n, err := DLQLength(ctx, rdb, QueueCajaMayor)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCajaMayorWorker_ExhaustedGoesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	fallo := errors.New("db caida")
	dep := &fakeDepositos{errs: []error{fallo, fallo, fallo, fallo}}
	w := newTestCajaMayorWorker(rdb, dep, &fakeUsoDevolucion{})

	w.Process(ctx, reintentoPayload(t, service.ReintentoDeposito, uuid.New()))

	assert.Equal(t, maxIntentosCajaMayor, dep.llamadas)
	entries, err := ListDLQ(ctx, rdb, QueueCajaMayor, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, JobCajaMayor, entries[0].JobType)
	assert.Equal(t, maxIntentosCajaMayor, entries[0].Attempts)
	assert.Equal(t, "db caida", entries[0].Reason)
}

func TestCajaMayorWorker_DomainErrorIsFinal(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	dep := &fakeDepositos{errs: []error{&service.Error{Kind: service.ErrNoEncontrado, Msg: "depósito no encontrado"}}}
	w := newTestCajaMayorWorker(rdb, dep, &fakeUsoDevolucion{})

	w.Process(ctx, reintentoPayload(t, service.ReintentoDeposito, uuid.New()))

	assert.Equal(t, 1, dep.llamadas)
	entries, err := ListDLQ(ctx, rdb, QueueCajaMayor, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
}

func TestCajaMayorWorker_Anulacion(t *testing.T) {
	rdb := newTestRedis(t)
	ud := &fakeUsoDevolucion{}
	w := newTestCajaMayorWorker(rdb, &fakeDepositos{}, ud)
	id := uuid.New()

	w.Process(context.Background(), reintentoPayload(t, service.ReintentoAnulacion, id))

	assert.Equal(t, []uuid.UUID{id}, ud.completadas)
}

func TestCajaMayorWorker_UnknownOrigin(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	w := newTestCajaMayorWorker(rdb, &fakeDepositos{}, &fakeUsoDevolucion{})

	w.Process(ctx, reintentoPayload(t, "venta", uuid.New()))
	w.Process(ctx, json.RawMessage(`"no es un objeto"`))

	n, err := DLQLength(ctx, rdb, QueueCajaMayor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

// ── Reconciliation ───────────────────────────────────────────────────────────

func TestReconciliar_CompletesBothOrigins(t *testing.T) {
	depID, anulID := uuid.New(), uuid.New()
	dep := &fakeDepositos{pendientes: []uuid.UUID{depID}}
	ud := &fakeUsoDevolucion{incompletas: []uuid.UUID{anulID}}

	n := reconciliar(context.Background(), ReconciliationConfig{Depositos: dep, UsoDevolucion: ud, Gracia: time.Minute})

	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{depID}, dep.vinculados)
	assert.Equal(t, []uuid.UUID{anulID}, ud.completadas)
}

func TestReconciliar_FailureDoesNotStopBatch(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	dep := &fakeDepositos{pendientes: []uuid.UUID{a, b}, errs: []error{errors.New("timeout")}}
	ud := &fakeUsoDevolucion{incompletas: []uuid.UUID{uuid.New()}, err: errors.New("timeout")}

	n := reconciliar(context.Background(), ReconciliationConfig{Depositos: dep, UsoDevolucion: ud, Gracia: time.Minute})

	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{b}, dep.vinculados)
}

func TestStartReconciliationCron_Ticks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ud := &fakeUsoDevolucion{incompletas: []uuid.UUID{uuid.New()}}

	StartReconciliationCron(ctx, ReconciliationConfig{
		Depositos:     &fakeDepositos{},
		UsoDevolucion: ud,
		Interval:      10 * time.Millisecond,
	})

	assert.Eventually(t, func() bool {
		ud.mu.Lock()
		defer ud.mu.Unlock()
		return len(ud.completadas) > 0
	}, time.Second, 10*time.Millisecond)
}

// ── EmailWorker ──────────────────────────────────────────────────────────────

func resumenFinalizado() *dto.ResumenRRHHResponse {
	total := decimal.NewFromInt(2550000)
	return &dto.ResumenRRHHResponse{
		PersonaID:     uuid.NewString(),
		PersonaNombre: "Ana Benítez",
		Mes:           3,
		Anio:          2026,
		Finalizado:    true,
		TotalGS:       total,
		TotalFinalGS:  &total,
	}
}

func resumenPayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ResumenJobPayload{ResumenID: uuid.New()})
	require.NoError(t, err)
	return raw
}

func TestEmailWorker_SendsPDF(t *testing.T) {
	rdb := newTestRedis(t)
	dir := t.TempDir()
	resumen := resumenFinalizado()
	mailer := &fakeMailer{}
	cb := infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())
	w := NewEmailWorker(&fakeRRHH{resumen: resumen, email: "ana@example.com"}, mailer, cb, rdb, dir)

	w.Process(context.Background(), resumenPayload(t))

	require.Len(t, mailer.enviados, 1)
	e := mailer.enviados[0]
	assert.Equal(t, "ana@example.com", e.to)
	assert.Equal(t, "Resumen de haberes 03/2026", e.subject)
	assert.Contains(t, e.body, "2.550.000")
	assert.Equal(t, infra.ResumenPDFName(resumen), e.adjuntoNombre)
	assert.True(t, len(e.adjunto) > 4 && string(e.adjunto[:4]) == "%PDF")

	_, err := os.Stat(filepath.Join(dir, infra.ResumenPDFName(resumen)))
	assert.NoError(t, err)
}

func TestEmailWorker_SkipsReopenedMonth(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	mailer := &fakeMailer{}
	rrhh := &fakeRRHH{err: &service.Error{Kind: service.ErrConflicto, Msg: "el mes fue reabierto"}}
	w := NewEmailWorker(rrhh, mailer, infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig()), rdb, t.TempDir())

	w.Process(ctx, resumenPayload(t))

	assert.Empty(t, mailer.enviados)
	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmailWorker_SkipsWithoutEmail(t *testing.T) {
	rdb := newTestRedis(t)
	mailer := &fakeMailer{}
	w := NewEmailWorker(&fakeRRHH{resumen: resumenFinalizado()}, mailer, infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig()), rdb, t.TempDir())

	w.Process(context.Background(), resumenPayload(t))

	assert.Empty(t, mailer.enviados)
}

func TestEmailWorker_OpenBreakerGoesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}
	cb := infra.NewCircuitBreaker("smtp", infra.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour})
	w := NewEmailWorker(&fakeRRHH{resumen: resumenFinalizado(), email: "ana@example.com"}, mailer, cb, rdb, t.TempDir())

	w.Process(ctx, resumenPayload(t))
	assert.Equal(t, infra.CBOpen, cb.State())

	mailer.err = nil
	w.Process(ctx, resumenPayload(t))
	assert.Empty(t, mailer.enviados, "open breaker must not reach the mailer")

	entries, err := ListDLQ(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, infra.ErrCircuitOpen.Error(), entries[0].Reason)
}
