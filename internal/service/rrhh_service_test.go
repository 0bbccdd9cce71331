package service_test

import (
	"context"
	"testing"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// empleadoConMes creates an IPS-enrolled employee with a salary, a USD bonus
// and a vale due in March 2024.
func empleadoConMes(t *testing.T, e *entorno) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	email := "empleado@farmacia.com.py"
	p, err := e.personas.Crear(ctx, dto.CrearPersonaRequest{
		Nombre:      "Graciela Duarte",
		Documento:   "4567890",
		Tipo:        "funcionario",
		Email:       &email,
		AsociadoIPS: true,
	})
	require.NoError(t, err)

	_, err = e.rrhh.RegistrarSueldo(ctx, uuid.New(), dto.RegistrarSueldoRequest{
		PersonaID: p.ID, Moneda: "PYG", Monto: pyg(3000000), VigenteDesde: "2024-01-01",
	})
	require.NoError(t, err)
	// effective from April, must not count for March
	_, err = e.rrhh.RegistrarSueldo(ctx, uuid.New(), dto.RegistrarSueldoRequest{
		PersonaID: p.ID, Moneda: "PYG", Monto: pyg(3500000), VigenteDesde: "2024-04-01",
	})
	require.NoError(t, err)

	_, err = e.rrhh.CrearMovimiento(ctx, uuid.New(), dto.CrearMovimientoRRHHRequest{
		PeriodoRRHH: dto.PeriodoRRHH{PersonaID: p.ID, Mes: 3, Anio: 2024},
		Tipo:        "Bono",
		EsIngreso:   true,
		Moneda:      "USD",
		Monto:       decimal.NewFromInt(100),
		Concepto:    "Bono por inventario",
	})
	require.NoError(t, err)

	_, err = e.rrhh.CrearVale(ctx, uuid.New(), dto.CrearValeRequest{
		PersonaID: p.ID, Moneda: "PYG", Monto: pyg(500000), FechaVencimiento: "2024-03-15", Concepto: "Adelanto de sueldo",
	})
	require.NoError(t, err)
	// due in April
	_, err = e.rrhh.CrearVale(ctx, uuid.New(), dto.CrearValeRequest{
		PersonaID: p.ID, Moneda: "PYG", Monto: pyg(200000), FechaVencimiento: "2024-04-02", Concepto: "Adelanto abril",
	})
	require.NoError(t, err)
	return uuid.MustParse(p.ID)
}

func finalizar(persona uuid.UUID, usd, brl int64) dto.FinalizarMesRequest {
	return dto.FinalizarMesRequest{
		PeriodoRRHH:  dto.PeriodoRRHH{PersonaID: persona.String(), Mes: 3, Anio: 2024},
		Cotizaciones: dto.Cotizaciones{USD: decimal.NewFromInt(usd), BRL: decimal.NewFromInt(brl)},
	}
}

func TestRRHH_FinalizarMes(t *testing.T) {
	e := nuevoEntorno(t)
	p := empleadoConMes(t, e)

	resp, err := e.rrhh.FinalizarMes(context.Background(), uuid.New(), finalizar(p, 7300, 1400))
	require.NoError(t, err)

	assert.True(t, resp.Finalizado)
	require.Len(t, resp.Movimientos, 4)
	origenes := []string{resp.Movimientos[0].Origen, resp.Movimientos[1].Origen, resp.Movimientos[2].Origen, resp.Movimientos[3].Origen}
	assert.Equal(t, []string{model.OrigenSueldo, model.OrigenManual, model.OrigenVale, model.OrigenIPS}, origenes)

	// IPS: round(2680373 × 9%) = 241234
	assertMonto(t, "-241234", resp.Movimientos[3].Monto)
	assertMonto(t, "2258766", resp.TotalGS)
	assertMonto(t, "100", resp.TotalUSD)
	assertMonto(t, "0", resp.TotalBRL)
	require.NotNil(t, resp.TotalFinalGS)
	assertMonto(t, "2988766", *resp.TotalFinalGS)

	require.Len(t, e.enc.resumenes, 1, "la persona tiene email")
}

func TestRRHH_FinalizarReabrirFinalizar(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := empleadoConMes(t, e)

	_, err := e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(p, 7300, 1400))
	require.NoError(t, err)

	_, err = e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(p, 7300, 1400))
	assert.ErrorIs(t, err, service.ErrConflicto)

	periodo := dto.PeriodoRRHH{PersonaID: p.String(), Mes: 3, Anio: 2024}
	abierto, err := e.rrhh.ReabrirMes(ctx, uuid.New(), dto.ReabrirMesRequest{PeriodoRRHH: periodo})
	require.NoError(t, err)
	assert.False(t, abierto.Finalizado)
	assert.NotNil(t, abierto.FechaReapertura)
	assert.Nil(t, abierto.TotalFinalGS)

	_, err = e.rrhh.ReabrirMes(ctx, uuid.New(), dto.ReabrirMesRequest{PeriodoRRHH: periodo})
	assert.ErrorIs(t, err, service.ErrConflicto)

	final, err := e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(p, 7500, 1450))
	require.NoError(t, err)
	require.NotNil(t, final.TotalFinalGS)
	assertMonto(t, "3008766", *final.TotalFinalGS)
	require.NotNil(t, final.Cotizaciones)
	assertMonto(t, "7500", final.Cotizaciones.USD)

	assert.Equal(t, int64(4), e.contar(t, &model.MovimientoRRHHFinalizado{}, "persona_id = ?", p))
	assert.Equal(t, int64(1), e.contar(t, &model.ResumenMesRRHH{}, "persona_id = ?", p))

	leido, err := e.rrhh.GetMovimientos(ctx, p, 3, 2024, nil)
	require.NoError(t, err)
	assert.True(t, leido.Finalizado)
	assert.Len(t, leido.Movimientos, 4)
	assertMonto(t, "3008766", *leido.TotalFinalGS)
}

func TestRRHH_MesFinalizadoEsInmutable(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := empleadoConMes(t, e)

	_, err := e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(p, 7300, 1400))
	require.NoError(t, err)

	_, err = e.rrhh.CrearMovimiento(ctx, uuid.New(), dto.CrearMovimientoRRHHRequest{
		PeriodoRRHH: dto.PeriodoRRHH{PersonaID: p.String(), Mes: 3, Anio: 2024},
		Tipo:        "Descuento",
		Moneda:      "PYG",
		Monto:       pyg(10000),
		Concepto:    "Rotura de mercadería",
	})
	assert.ErrorIs(t, err, service.ErrConflicto)

	_, err = e.rrhh.CrearVale(ctx, uuid.New(), dto.CrearValeRequest{
		PersonaID: p.String(), Moneda: "PYG", Monto: pyg(1000), FechaVencimiento: "2024-03-20", Concepto: "Vale tardío",
	})
	assert.ErrorIs(t, err, service.ErrConflicto)

	// April is still open
	_, err = e.rrhh.CrearMovimiento(ctx, uuid.New(), dto.CrearMovimientoRRHHRequest{
		PeriodoRRHH: dto.PeriodoRRHH{PersonaID: p.String(), Mes: 4, Anio: 2024},
		Tipo:        "Descuento",
		Moneda:      "PYG",
		Monto:       pyg(10000),
		Concepto:    "Rotura de mercadería",
	})
	assert.NoError(t, err)
}

func TestRRHH_VistaEnVivo(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := empleadoConMes(t, e)

	sinCot, err := e.rrhh.GetMovimientos(ctx, p, 3, 2024, nil)
	require.NoError(t, err)
	assert.False(t, sinCot.Finalizado)
	assert.Nil(t, sinCot.TotalFinalGS)
	assertMonto(t, "2258766", sinCot.TotalGS)

	conCot, err := e.rrhh.GetMovimientos(ctx, p, 3, 2024, &dto.Cotizaciones{USD: decimal.NewFromInt(7000), BRL: decimal.NewFromInt(1300)})
	require.NoError(t, err)
	require.NotNil(t, conCot.TotalFinalGS)
	assertMonto(t, "2958766", *conCot.TotalFinalGS)

	assert.Equal(t, int64(0), e.contar(t, &model.MovimientoRRHHFinalizado{}, ""))
}

func TestRRHH_AnularMovimientoYVale(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Hugo Benítez")

	mov, err := e.rrhh.CrearMovimiento(ctx, uuid.New(), dto.CrearMovimientoRRHHRequest{
		PeriodoRRHH: dto.PeriodoRRHH{PersonaID: p.String(), Mes: 5, Anio: 2024},
		Tipo:        "Horas extra",
		EsIngreso:   true,
		Moneda:      "PYG",
		Monto:       pyg(150000),
		Concepto:    "Horas extra inventario",
	})
	require.NoError(t, err)
	vale, err := e.rrhh.CrearVale(ctx, uuid.New(), dto.CrearValeRequest{
		PersonaID: p.String(), Moneda: "PYG", Monto: pyg(50000), FechaVencimiento: "2024-05-31", Concepto: "Vale",
	})
	require.NoError(t, err)

	require.NoError(t, e.rrhh.AnularMovimiento(ctx, uuid.MustParse(mov.ID)))
	assert.ErrorIs(t, e.rrhh.AnularMovimiento(ctx, uuid.MustParse(mov.ID)), service.ErrConflicto)
	require.NoError(t, e.rrhh.AnularVale(ctx, uuid.MustParse(vale.ID)))

	resumen, err := e.rrhh.GetMovimientos(ctx, p, 5, 2024, nil)
	require.NoError(t, err)
	assert.Empty(t, resumen.Movimientos)
	assertMonto(t, "0", resumen.TotalGS)
}

func TestRRHH_Validaciones(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.nuevaPersona(t, "Nadia Rojas")

	req := finalizar(p, 7300, 1400)
	req.Mes = 13
	_, err := e.rrhh.FinalizarMes(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, service.ErrValidacion)

	req = finalizar(p, 0, 1400)
	_, err = e.rrhh.FinalizarMes(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, service.ErrValidacion)

	_, err = e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(uuid.New(), 7300, 1400))
	assert.ErrorIs(t, err, service.ErrNoEncontrado)

	_, err = e.rrhh.ReabrirMes(ctx, uuid.New(), dto.ReabrirMesRequest{PeriodoRRHH: dto.PeriodoRRHH{PersonaID: p.String(), Mes: 1, Anio: 2024}})
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
}

func TestRRHH_SinEmailNoEncola(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.nuevaPersona(t, "Sin Correo")

	resp, err := e.rrhh.FinalizarMes(context.Background(), uuid.New(), finalizar(p, 7300, 1400))
	require.NoError(t, err)
	assert.Empty(t, resp.Movimientos)
	assert.Empty(t, e.enc.resumenes)
}

func TestRRHH_ResumenParaEnvio(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := empleadoConMes(t, e)

	_, err := e.rrhh.FinalizarMes(ctx, uuid.New(), finalizar(p, 7300, 1400))
	require.NoError(t, err)
	require.Len(t, e.enc.resumenes, 1)

	resumen, email, err := e.rrhh.ResumenParaEnvio(ctx, e.enc.resumenes[0])
	require.NoError(t, err)
	assert.Equal(t, "empleado@farmacia.com.py", email)
	assert.Equal(t, "Graciela Duarte", resumen.PersonaNombre)
	assert.Len(t, resumen.Movimientos, 4)
}
