package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"
	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// salarioMinimoTest is the PYG minimum wage used for the IPS deduction.
var salarioMinimoTest = decimal.RequireFromString("2680373")

// ── Test environment ─────────────────────────────────────────────────────────
// Every test gets its own in-memory SQLite database with the full schema and
// real services on top of it.

type entorno struct {
	db  *gorm.DB
	enc *encoladorFake

	personaRepo   repository.PersonaRepository
	cajaMayorRepo repository.CajaMayorRepository
	usoRepo       repository.UsoDevolucionRepository
	depositoRepo  repository.DepositoRepository
	bancoRepo     repository.BancoRepository

	personas  service.PersonaService
	cajaMayor service.CajaMayorService
	usoDev    service.UsoDevolucionService
	depositos service.DepositoService
	rrhh      service.RRHHService
	caja      service.CajaService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	db, err := infra.NewSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	e := &entorno{
		db:            db,
		enc:           &encoladorFake{},
		personaRepo:   repository.NewPersonaRepository(db),
		cajaMayorRepo: repository.NewCajaMayorRepository(db),
		usoRepo:       repository.NewUsoDevolucionRepository(db),
		depositoRepo:  repository.NewDepositoRepository(db),
		bancoRepo:     repository.NewBancoRepository(db),
	}
	e.personas = service.NewPersonaService(e.personaRepo)
	e.cajaMayor = service.NewCajaMayorService(e.cajaMayorRepo)
	e.usoDev = e.usoDevCon(e.cajaMayor)
	e.depositos = e.depositosCon(e.cajaMayor)
	e.rrhh = service.NewRRHHService(repository.NewRRHHRepository(db), e.personaRepo, salarioMinimoTest, e.enc)
	e.caja = service.NewCajaService(repository.NewCajaRepository(db), e.cajaMayor)
	return e
}

func (e *entorno) usoDevCon(cm service.CajaMayorService) service.UsoDevolucionService {
	return service.NewUsoDevolucionService(e.usoRepo, e.personaRepo, cm, e.cajaMayorRepo, e.enc)
}

func (e *entorno) depositosCon(cm service.CajaMayorService) service.DepositoService {
	return service.NewDepositoService(e.depositoRepo, e.bancoRepo, cm, e.cajaMayorRepo, e.enc)
}

func (e *entorno) nuevaPersona(t *testing.T, nombre string) uuid.UUID {
	t.Helper()
	resp, err := e.personas.Crear(context.Background(), dto.CrearPersonaRequest{
		Nombre:    nombre,
		Documento: uuid.NewString()[:8],
		Tipo:      "funcionario",
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (e *entorno) saldoPersona(t *testing.T, id uuid.UUID, m model.Moneda) decimal.Decimal {
	t.Helper()
	resp, err := e.personas.Saldos(context.Background(), id)
	require.NoError(t, err)
	return buscarSaldo(t, resp.Saldos, m)
}

func (e *entorno) saldoCaja(t *testing.T, m model.Moneda) decimal.Decimal {
	t.Helper()
	resp, err := e.cajaMayor.Saldos(context.Background())
	require.NoError(t, err)
	return buscarSaldo(t, resp.Saldos, m)
}

// fondear puts cash in the caja mayor through a manual ingreso.
func (e *entorno) fondear(t *testing.T, m model.Moneda, monto string) {
	t.Helper()
	_, err := e.cajaMayor.RegistrarManual(context.Background(), uuid.New(), dto.MovimientoCajaMayorRequest{
		Tipo:     "ingreso",
		Moneda:   string(m),
		Monto:    decimal.RequireFromString(monto),
		Concepto: "Fondo inicial",
	})
	require.NoError(t, err)
}

// cuenta creates a bank and an account in moneda and returns the account id.
func (e *entorno) cuenta(t *testing.T, m model.Moneda) string {
	t.Helper()
	ctx := context.Background()
	banco, err := e.depositos.CrearBanco(ctx, dto.CrearBancoRequest{Nombre: "Banco " + uuid.NewString()[:6]})
	require.NoError(t, err)
	c, err := e.depositos.CrearCuenta(ctx, dto.CrearCuentaBancariaRequest{
		BancoID:      banco.ID,
		NumeroCuenta: "0012-" + uuid.NewString()[:6],
		Moneda:       string(m),
		Titular:      "Farmacia Central S.A.",
	})
	require.NoError(t, err)
	return c.ID
}

func (e *entorno) contar(t *testing.T, modelo interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(modelo)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func buscarSaldo(t *testing.T, saldos []dto.SaldoResponse, m model.Moneda) decimal.Decimal {
	t.Helper()
	for _, s := range saldos {
		if s.Moneda == string(m) {
			return s.Saldo
		}
	}
	t.Fatalf("sin saldo para %s", m)
	return decimal.Zero
}

func assertMonto(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "esperado %s, obtenido %s", want, got)
}

func pyg(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// ── Fakes ────────────────────────────────────────────────────────────────────

type encoladorFake struct {
	mu         sync.Mutex
	reintentos []service.Reintento
	resumenes  []uuid.UUID
}

func (f *encoladorFake) EncolarReintento(_ context.Context, r service.Reintento) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reintentos = append(f.reintentos, r)
	return nil
}

func (f *encoladorFake) EncolarResumenRRHH(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumenes = append(f.resumenes, id)
	return nil
}

var errCajaCaida = errors.New("caja mayor fuera de servicio")

// cajaMayorCaida fails every append; reads pass through.
type cajaMayorCaida struct{ service.CajaMayorService }

func (cajaMayorCaida) RegistrarMovimientoTx(*gorm.DB, service.RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error) {
	return nil, errCajaCaida
}

func (cajaMayorCaida) RegistrarMovimiento(context.Context, service.RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error) {
	return nil, errCajaCaida
}
