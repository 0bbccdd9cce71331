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

func abrirCaja(t *testing.T, e *entorno, pdv int, inicialGS int64) uuid.UUID {
	t.Helper()
	resp, err := e.caja.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:    pdv,
		MontosIniciales: dto.MontosMoneda{GS: pyg(inicialGS)},
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.SesionCajaID)
}

func venta(t *testing.T, e *entorno, sesion uuid.UUID, metodo, moneda string, monto decimal.Decimal) {
	t.Helper()
	require.NoError(t, e.caja.RegistrarMovimiento(context.Background(), uuid.New(), dto.MovimientoManualRequest{
		SesionCajaID: sesion.String(),
		Tipo:         "venta",
		MetodoPago:   metodo,
		Moneda:       moneda,
		Monto:        monto,
		Descripcion:  "Venta mostrador",
	}))
}

func TestAbrirCaja(t *testing.T) {
	e := nuevoEntorno(t)
	resp, err := e.caja.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:    1,
		MontosIniciales: dto.MontosMoneda{GS: pyg(500000), USD: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, "abierta", resp.Estado)
	assert.Equal(t, 1, resp.PuntoDeVenta)
	assertMonto(t, "500000", resp.MontosIniciales.GS)
	assertMonto(t, "20", resp.MontosIniciales.USD)
	assert.Empty(t, resp.Arqueo)
}

func TestAbrirCajaDuplicada(t *testing.T) {
	e := nuevoEntorno(t)
	abrirCaja(t, e, 1, 5000)

	_, err := e.caja.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{PuntoDeVenta: 1})
	assert.ErrorIs(t, err, service.ErrConflicto)

	// another point of sale is fine
	abrirCaja(t, e, 2, 5000)
}

func TestEgresoManual_MontoNegativo(t *testing.T) {
	e := nuevoEntorno(t)
	sesion := abrirCaja(t, e, 8, 5000)

	require.NoError(t, e.caja.RegistrarMovimiento(context.Background(), uuid.New(), dto.MovimientoManualRequest{
		SesionCajaID: sesion.String(),
		Tipo:         "egreso_manual",
		MetodoPago:   "efectivo",
		Moneda:       "PYG",
		Monto:        pyg(200),
		Descripcion:  "Pago de taxi",
	}))

	var mov model.MovimientoCaja
	require.NoError(t, e.db.Where("sesion_caja_id = ?", sesion).First(&mov).Error)
	assertMonto(t, "-200", mov.Monto)
}

func TestArqueo_DesvioNormalYCierreEnCajaMayor(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	sesion := abrirCaja(t, e, 3, 5000)
	venta(t, e, sesion, "efectivo", "PYG", pyg(10000))
	venta(t, e, sesion, "pos", "PYG", pyg(7000))
	venta(t, e, sesion, "efectivo", "USD", decimal.NewFromInt(15))

	resp, err := e.caja.Arqueo(ctx, uuid.New(), dto.ArqueoRequest{
		SesionCajaID: sesion.String(),
		Declaracion: dto.DeclaracionArqueo{
			GS:  dto.DeclaracionMoneda{Efectivo: pyg(15000), POS: pyg(7000)},
			USD: dto.DeclaracionMoneda{Efectivo: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", resp.Clasificacion)
	assert.Equal(t, "cerrada", resp.Estado)
	require.Len(t, resp.Monedas, 3)

	gs := resp.Monedas[0]
	assert.Equal(t, "PYG", gs.Moneda)
	assertMonto(t, "15000", gs.MontoEsperado.Efectivo)
	assertMonto(t, "22000", gs.MontoEsperado.Total)
	assertMonto(t, "0", gs.Desvio.Monto)
	require.NotNil(t, gs.MovimientoCajaMayorID)
	assert.Nil(t, resp.Monedas[2].MovimientoCajaMayorID, "BRL sin efectivo declarado")

	// declared cash lands in the caja mayor
	assertMonto(t, "15000", e.saldoCaja(t, model.PYG))
	assertMonto(t, "15", e.saldoCaja(t, model.USD))
	assert.Equal(t, int64(2), e.contar(t, &model.MovimientoCajaMayor{}, "tipo = ?", model.TipoCierreCaja))

	reporte, err := e.caja.ObtenerReporte(ctx, sesion)
	require.NoError(t, err)
	assert.Equal(t, "cerrada", reporte.Estado)
	assert.Len(t, reporte.Arqueo, 3)
	require.NotNil(t, reporte.ClosedAt)
}

func TestArqueo_DesvioAdvertencia(t *testing.T) {
	e := nuevoEntorno(t)
	sesion := abrirCaja(t, e, 4, 5000)

	// expected 5000, declared 4800: -4%
	resp, err := e.caja.Arqueo(context.Background(), uuid.New(), dto.ArqueoRequest{
		SesionCajaID: sesion.String(),
		Declaracion:  dto.DeclaracionArqueo{GS: dto.DeclaracionMoneda{Efectivo: pyg(4800)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "advertencia", resp.Clasificacion)
	assert.True(t, resp.Monedas[0].Desvio.Monto.IsNegative())
	assertMonto(t, "-4", resp.Monedas[0].Desvio.Porcentaje)
}

func TestArqueo_DesvioCriticoExigeObservaciones(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	sesion := abrirCaja(t, e, 5, 10000)

	req := dto.ArqueoRequest{
		SesionCajaID: sesion.String(),
		Declaracion:  dto.DeclaracionArqueo{GS: dto.DeclaracionMoneda{Efectivo: pyg(9000)}},
	}
	_, err := e.caja.Arqueo(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, service.ErrValidacion)

	// nothing was written
	reporte, err := e.caja.ObtenerReporte(ctx, sesion)
	require.NoError(t, err)
	assert.Equal(t, "abierta", reporte.Estado)
	assertMonto(t, "0", e.saldoCaja(t, model.PYG))

	obs := "Faltante detectado en turno nocturno"
	req.Observaciones = &obs
	resp, err := e.caja.Arqueo(ctx, uuid.New(), req)
	require.NoError(t, err)
	assert.Equal(t, "critico", resp.Clasificacion)
	assertMonto(t, "9000", e.saldoCaja(t, model.PYG))

	_, err = e.caja.Arqueo(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, service.ErrConflicto)
}

func TestArqueo_PeorMonedaDefineClasificacion(t *testing.T) {
	e := nuevoEntorno(t)
	sesion := abrirCaja(t, e, 6, 100000)
	venta(t, e, sesion, "transferencia", "BRL", decimal.NewFromInt(50))

	obs := "Transferencia no acreditada"
	resp, err := e.caja.Arqueo(context.Background(), uuid.New(), dto.ArqueoRequest{
		SesionCajaID:  sesion.String(),
		Declaracion:   dto.DeclaracionArqueo{GS: dto.DeclaracionMoneda{Efectivo: pyg(100000)}},
		Observaciones: &obs,
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", resp.Monedas[0].Desvio.Clasificacion)
	assert.Equal(t, "critico", resp.Monedas[2].Desvio.Clasificacion)
	assert.Equal(t, "critico", resp.Clasificacion)
}

func TestCaja_SesionCerradaNoAceptaMovimientos(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	sesion := abrirCaja(t, e, 7, 0)

	_, err := e.caja.Arqueo(ctx, uuid.New(), dto.ArqueoRequest{SesionCajaID: sesion.String()})
	require.NoError(t, err)

	err = e.caja.RegistrarMovimiento(ctx, uuid.New(), dto.MovimientoManualRequest{
		SesionCajaID: sesion.String(),
		Tipo:         "venta",
		MetodoPago:   "efectivo",
		Moneda:       "PYG",
		Monto:        pyg(1000),
		Descripcion:  "Venta tardía",
	})
	assert.ErrorIs(t, err, service.ErrConflicto)

	// the point of sale can open again
	abrirCaja(t, e, 7, 0)
}

func TestCaja_ActivaEHistorial(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	cajero := uuid.New()

	_, err := e.caja.GetActiva(ctx, cajero)
	assert.ErrorIs(t, err, service.ErrNoEncontrado)

	resp, err := e.caja.Abrir(ctx, cajero, dto.AbrirCajaRequest{PuntoDeVenta: 9})
	require.NoError(t, err)

	activa, err := e.caja.GetActiva(ctx, cajero)
	require.NoError(t, err)
	assert.Equal(t, resp.SesionCajaID, activa.SesionCajaID)

	abrirCaja(t, e, 10, 0)
	hist, err := e.caja.Historial(ctx, dto.Paginacion{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), hist.Total)
}
