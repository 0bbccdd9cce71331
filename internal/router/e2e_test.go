//go:build integration

package router

// e2e_test.go
// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v
//
//   - concurrent uso/devolución on one persona serialize on the balance rows
//   - a full cashier session closes into caja mayor
//   - the worker pool completes a queued caja mayor entry through Redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sistema-servicios/internal/config"
	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/repository"
	"sistema-servicios/internal/service"
	"sistema-servicios/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type e2eEnv struct {
	server *httptest.Server
	db     *gorm.DB
	rdb    *redis.Client
	actor  string
}

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("servicios_test"),
		tcPostgres.WithUsername("servicios"),
		tcPostgres.WithPassword("servicios"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "development",
		RateLimit:           10000,
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		WorkerPoolSize:      2,
		IdempotencyTTLHours: 24,
		PDFStoragePath:      t.TempDir(),
		SalarioMinimoGS:     "2680373",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)

	r := New(runCtx, cfg, db, rdb, worker.NewDispatcher(rdb), infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &e2eEnv{server: srv, db: db, rdb: rdb, actor: uuid.NewString()}
}

func (e *e2eEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, e.actor)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeResp[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestE2E_ConcurrentUsoDevolucion(t *testing.T) {
	env := setupE2E(t)

	resp := env.do(t, http.MethodPost, "/v1/personas", dto.CrearPersonaRequest{Nombre: "Ana Benítez", Documento: "4123456", Tipo: "funcionario"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	persona := decodeResp[dto.PersonaResponse](t, resp)

	const n = 20
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := env.do(t, http.MethodPost, "/v1/uso-devolucion", map[string]any{
				"persona_id":      persona.ID,
				"tipo":            "USO",
				"monto_guaranies": "1000",
				"motivo":          fmt.Sprintf("Adelanto %d", i),
			})
			codes[i] = r.StatusCode
			r.Body.Close()
		}(i)
	}
	wg.Wait()
	for i, c := range codes {
		assert.Equal(t, http.StatusCreated, c, "request %d", i)
	}

	resp = env.do(t, http.MethodGet, "/v1/personas/"+persona.ID+"/saldos", nil)
	assert.Equal(t, "-20000", saldoDe(decodeResp[dto.SaldosPersonaResponse](t, resp).Saldos, "PYG"))

	resp = env.do(t, http.MethodGet, "/v1/caja-mayor/saldos", nil)
	assert.Equal(t, "20000", saldoDe(decodeResp[dto.SaldosCajaMayorResponse](t, resp).Saldos, "PYG"))

	// every entry chains on the previous balance
	resp = env.do(t, http.MethodGet, "/v1/caja-mayor/movimientos?moneda=PYG&limit=100", nil)
	list := decodeResp[dto.CajaMayorListResponse](t, resp)
	require.Len(t, list.Data, n)
	saldos := map[string]bool{}
	for _, m := range list.Data {
		assert.True(t, m.SaldoActual.Sub(m.SaldoAnterior).Equal(m.Monto))
		saldos[m.SaldoActual.String()] = true
	}
	assert.Len(t, saldos, n, "no two entries may share a running balance")
}

func TestE2E_SesionCajaCierraEnCajaMayor(t *testing.T) {
	env := setupE2E(t)

	resp := env.do(t, http.MethodPost, "/v1/caja/abrir", map[string]any{
		"punto_de_venta":   1,
		"montos_iniciales": map[string]string{"GS": "100000"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sesion := decodeResp[dto.ReporteCajaResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/v1/caja/abrir", map[string]any{"punto_de_venta": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/caja/movimiento", map[string]any{
		"sesion_caja_id": sesion.SesionCajaID,
		"tipo":           "venta",
		"metodo_pago":    "efectivo",
		"moneda":         "PYG",
		"monto":          "50000",
		"descripcion":    "Venta mostrador",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/caja/arqueo", map[string]any{
		"sesion_caja_id": sesion.SesionCajaID,
		"declaracion":    map[string]any{"GS": map[string]string{"efectivo": "150000"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	arqueo := decodeResp[dto.ArqueoResponse](t, resp)
	assert.Equal(t, "normal", arqueo.Clasificacion)

	resp = env.do(t, http.MethodGet, "/v1/caja-mayor/saldos", nil)
	assert.Equal(t, "150000", saldoDe(decodeResp[dto.SaldosCajaMayorResponse](t, resp).Saldos, "PYG"))
}

func TestE2E_WorkerCompletesQueuedEntry(t *testing.T) {
	env := setupE2E(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cajaMayorRepo := repository.NewCajaMayorRepository(env.db)
	cajaMayor := service.NewCajaMayorService(cajaMayorRepo)
	dispatcher := worker.NewDispatcher(env.rdb)
	depositos := service.NewDepositoService(repository.NewDepositoRepository(env.db), repository.NewBancoRepository(env.db), cajaMayor, cajaMayorRepo, dispatcher)
	usoDev := service.NewUsoDevolucionService(repository.NewUsoDevolucionRepository(env.db), repository.NewPersonaRepository(env.db), cajaMayor, cajaMayorRepo, dispatcher)

	banco, err := depositos.CrearBanco(ctx, dto.CrearBancoRequest{Nombre: "Banco Itaú"})
	require.NoError(t, err)
	cuenta, err := depositos.CrearCuenta(ctx, dto.CrearCuentaBancariaRequest{BancoID: banco.ID, NumeroCuenta: "77-1", Moneda: "USD", Titular: "Farmacia"})
	require.NoError(t, err)

	// a deposit whose caja mayor entry was lost: row present, no link
	dep := map[string]any{"cuenta_bancaria_id": cuenta.ID, "numero_boleta": "Q-1", "monto": "120.50"}
	resp := env.do(t, http.MethodPost, "/v1/depositos", dep)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	op := decodeResp[dto.OperacionDepositoResponse](t, resp)
	require.NoError(t, env.db.Exec(`DELETE FROM caja_mayor_movimientos`).Error)
	require.NoError(t, env.db.Exec(`UPDATE caja_mayor_saldos SET saldo = 0`).Error)
	require.NoError(t, env.db.Exec(`UPDATE depositos_bancarios SET movimiento_id = NULL`).Error)

	worker.StartWorkerPool(ctx, env.rdb, &worker.WorkerHandlers{
		CajaMayor: worker.NewCajaMayorWorker(usoDev, depositos, env.rdb),
	}, 1)
	require.NoError(t, dispatcher.EncolarReintento(ctx, service.Reintento{Origen: service.ReintentoDeposito, ID: uuid.MustParse(op.Deposito.ID)}))

	require.Eventually(t, func() bool {
		d, err := depositos.Obtener(ctx, uuid.MustParse(op.Deposito.ID))
		return err == nil && d.MovimientoID != nil
	}, 10*time.Second, 100*time.Millisecond)

	resp = env.do(t, http.MethodGet, "/v1/caja-mayor/saldos", nil)
	assert.Equal(t, "-120.5", saldoDe(decodeResp[dto.SaldosCajaMayorResponse](t, resp).Saldos, "USD"))
}
