package service_test

import (
	"context"
	"testing"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crearOperacion(t *testing.T, svc service.UsoDevolucionService, personaID uuid.UUID, tipo string, gs decimal.Decimal) *dto.CrearUsoDevolucionResponse {
	t.Helper()
	resp, err := svc.Crear(context.Background(), uuid.New(), dto.CrearUsoDevolucionRequest{
		PersonaID:      personaID.String(),
		Tipo:           tipo,
		MontoGuaranies: gs,
		Motivo:         "Adelanto para compras",
	})
	require.NoError(t, err)
	return resp
}

func TestUsoDevolucion_Escenario(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Ana Benítez")

	uso := crearOperacion(t, e.usoDev, p, "USO", pyg(100000))
	assertMonto(t, "-100000", e.saldoPersona(t, p, model.PYG))
	require.Len(t, uso.MovimientosCaja, 1)
	assert.True(t, uso.MovimientosCaja[0].EsIngreso)
	assert.Equal(t, string(model.TipoUso), uso.MovimientosCaja[0].Tipo)
	assertMonto(t, "100000", uso.MovimientosCaja[0].Monto)
	assertMonto(t, "100000", e.saldoCaja(t, model.PYG))

	dev := crearOperacion(t, e.usoDev, p, "DEVOLUCION", pyg(40000))
	assertMonto(t, "-60000", e.saldoPersona(t, p, model.PYG))
	assert.False(t, dev.MovimientosCaja[0].EsIngreso)
	assertMonto(t, "60000", e.saldoCaja(t, model.PYG))

	require.NoError(t, e.usoDev.Anular(ctx, uuid.MustParse(uso.Operacion.ID), uuid.New(), "Cargado por error"))
	assertMonto(t, "40000", e.saldoPersona(t, p, model.PYG))
	// Anulación uso is an egreso of the same amount
	assertMonto(t, "-40000", e.saldoCaja(t, model.PYG))
	assert.Equal(t, int64(1), e.contar(t, &model.MovimientoCajaMayor{}, "tipo = ?", model.TipoAnulacionUso))

	op, err := e.usoDev.Obtener(ctx, uuid.MustParse(uso.Operacion.ID))
	require.NoError(t, err)
	assert.Equal(t, model.EstadoAnulado, op.Estado)
	require.NotNil(t, op.MotivoAnulacion)
	assert.Equal(t, "Cargado por error", *op.MotivoAnulacion)
}

func TestUsoDevolucion_MultiMoneda(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.nuevaPersona(t, "Carlos Ortiz")

	resp, err := e.usoDev.Crear(context.Background(), uuid.New(), dto.CrearUsoDevolucionRequest{
		PersonaID:      p.String(),
		Tipo:           "uso",
		MontoGuaranies: pyg(50000),
		MontoDolares:   decimal.RequireFromString("20.50"),
		Motivo:         "Viaje a Ciudad del Este",
	})
	require.NoError(t, err)

	assert.Len(t, resp.MovimientosCaja, 2, "BRL en cero no genera asiento")
	assertMonto(t, "-50000", e.saldoPersona(t, p, model.PYG))
	assertMonto(t, "-20.5", e.saldoPersona(t, p, model.USD))
	assertMonto(t, "0", e.saldoPersona(t, p, model.BRL))
	assertMonto(t, "20.5", e.saldoCaja(t, model.USD))
	assert.Len(t, resp.SaldosPersona, 3)
}

func TestUsoDevolucion_Validaciones(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Lucía Gómez")

	cases := []struct {
		name string
		req  dto.CrearUsoDevolucionRequest
		kind error
	}{
		{"sin montos", dto.CrearUsoDevolucionRequest{PersonaID: p.String(), Tipo: "USO", Motivo: "x"}, service.ErrValidacion},
		{"tipo desconocido", dto.CrearUsoDevolucionRequest{PersonaID: p.String(), Tipo: "PRESTAMO", MontoGuaranies: pyg(1), Motivo: "x"}, service.ErrValidacion},
		{"guaranies con decimales", dto.CrearUsoDevolucionRequest{PersonaID: p.String(), Tipo: "USO", MontoGuaranies: decimal.RequireFromString("10.5"), Motivo: "x"}, service.ErrValidacion},
		{"dolares con tres decimales", dto.CrearUsoDevolucionRequest{PersonaID: p.String(), Tipo: "USO", MontoDolares: decimal.RequireFromString("1.005"), Motivo: "x"}, service.ErrValidacion},
		{"monto negativo", dto.CrearUsoDevolucionRequest{PersonaID: p.String(), Tipo: "USO", MontoReales: pyg(-5), Motivo: "x"}, service.ErrValidacion},
		{"persona inexistente", dto.CrearUsoDevolucionRequest{PersonaID: uuid.NewString(), Tipo: "USO", MontoGuaranies: pyg(1000), Motivo: "x"}, service.ErrNoEncontrado},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.usoDev.Crear(ctx, uuid.New(), tc.req)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
	assert.Equal(t, int64(0), e.contar(t, &model.UsoDevolucion{}, ""))
	assert.Equal(t, int64(0), e.contar(t, &model.MovimientoCajaMayor{}, ""))
}

func TestUsoDevolucion_AnularDosVeces(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Marta Villalba")

	op := crearOperacion(t, e.usoDev, p, "USO", pyg(70000))
	id := uuid.MustParse(op.Operacion.ID)

	require.NoError(t, e.usoDev.Anular(ctx, id, uuid.New(), "Duplicado"))
	assertMonto(t, "0", e.saldoPersona(t, p, model.PYG))

	err := e.usoDev.Anular(ctx, id, uuid.New(), "Duplicado")
	assert.ErrorIs(t, err, service.ErrConflicto)
	assertMonto(t, "0", e.saldoPersona(t, p, model.PYG))
	assert.Equal(t, int64(1), e.contar(t, &model.MovimientoCajaMayor{}, "tipo = ?", model.TipoAnulacionUso))
}

func TestUsoDevolucion_AnularInexistente(t *testing.T) {
	e := nuevoEntorno(t)
	err := e.usoDev.Anular(context.Background(), uuid.New(), uuid.New(), "No existe")
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
}

func TestUsoDevolucion_ReversoExacto(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	a := e.nuevaPersona(t, "Persona A")
	b := e.nuevaPersona(t, "Persona B")

	crearOperacion(t, e.usoDev, a, "USO", pyg(10000))
	op := crearOperacion(t, e.usoDev, a, "DEVOLUCION", pyg(25000))
	antes := e.saldoPersona(t, a, model.PYG)

	// unrelated activity for B in between
	crearOperacion(t, e.usoDev, b, "USO", pyg(300000))
	crearOperacion(t, e.usoDev, b, "DEVOLUCION", pyg(1000))
	saldoB := e.saldoPersona(t, b, model.PYG)

	require.NoError(t, e.usoDev.Anular(ctx, uuid.MustParse(op.Operacion.ID), uuid.New(), "Error de carga"))

	despues := e.saldoPersona(t, a, model.PYG)
	assertMonto(t, "-25000", despues.Sub(antes))
	assertMonto(t, saldoB.String(), e.saldoPersona(t, b, model.PYG))
}

func TestUsoDevolucion_AtomicidadAlFallarCajaMayor(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.nuevaPersona(t, "Rosa Acosta")
	svc := e.usoDevCon(cajaMayorCaida{e.cajaMayor})

	_, err := svc.Crear(context.Background(), uuid.New(), dto.CrearUsoDevolucionRequest{
		PersonaID:      p.String(),
		Tipo:           "USO",
		MontoGuaranies: pyg(100000),
		Motivo:         "Compra de insumos",
	})
	require.ErrorIs(t, err, errCajaCaida)

	assert.Equal(t, int64(0), e.contar(t, &model.UsoDevolucion{}, ""))
	assert.Equal(t, int64(0), e.contar(t, &model.SaldoPersona{}, "persona_id = ?", p))
	assertMonto(t, "0", e.saldoPersona(t, p, model.PYG))
}

func TestUsoDevolucion_AnulacionBestEffort(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Diego Fernández")

	op := crearOperacion(t, e.usoDev, p, "DEVOLUCION", pyg(80000))
	id := uuid.MustParse(op.Operacion.ID)

	// the void stands even when the caja mayor append fails
	caida := e.usoDevCon(cajaMayorCaida{e.cajaMayor})
	require.NoError(t, caida.Anular(ctx, id, uuid.New(), "Devuelto en otra caja"))
	assertMonto(t, "0", e.saldoPersona(t, p, model.PYG))
	assert.Equal(t, int64(0), e.contar(t, &model.MovimientoCajaMayor{}, "tipo = ?", model.TipoAnulacionDevolucion))
	require.Len(t, e.enc.reintentos, 1)
	assert.Equal(t, service.Reintento{Origen: service.ReintentoAnulacion, ID: id}, e.enc.reintentos[0])

	// the reconciliation sweep sees it (cutoff slightly in the future)
	pendientes, err := e.usoDev.AnulacionesIncompletas(ctx, -time.Second, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, pendientes)

	// the retry completes it exactly once
	require.NoError(t, e.usoDev.CompletarAnulacion(ctx, id))
	require.NoError(t, e.usoDev.CompletarAnulacion(ctx, id))
	assert.Equal(t, int64(1), e.contar(t, &model.MovimientoCajaMayor{}, "tipo = ?", model.TipoAnulacionDevolucion))
	assertMonto(t, "0", e.saldoCaja(t, model.PYG))

	pendientes, err = e.usoDev.AnulacionesIncompletas(ctx, -time.Second, 10)
	require.NoError(t, err)
	assert.Empty(t, pendientes)
}

func TestUsoDevolucion_Listar(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.nuevaPersona(t, "Sofía Ramírez")
	otra := e.nuevaPersona(t, "Otra Persona")
	crearOperacion(t, e.usoDev, p, "USO", pyg(1000))
	crearOperacion(t, e.usoDev, p, "DEVOLUCION", pyg(500))
	crearOperacion(t, e.usoDev, otra, "USO", pyg(700))

	resp, err := e.usoDev.Listar(context.Background(), dto.UsoDevolucionFilter{
		PersonaID:  p.String(),
		Paginacion: dto.Paginacion{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Data, 2)
}
