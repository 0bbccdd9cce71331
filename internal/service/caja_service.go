package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	sesionAbierta = "abierta"
	sesionCerrada = "cerrada"

	desvioNormal      = "normal"
	desvioAdvertencia = "advertencia"
	desvioCritico     = "critico"
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) error
	Arqueo(ctx context.Context, usuarioID uuid.UUID, req dto.ArqueoRequest) (*dto.ArqueoResponse, error)
	ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	GetActiva(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error)
	Historial(ctx context.Context, p dto.Paginacion) (*dto.SesionCajaListResponse, error)
}

type cajaService struct {
	repo      repository.CajaRepository
	cajaMayor CajaMayorService
}

func NewCajaService(repo repository.CajaRepository, cajaMayor CajaMayorService) CajaService {
	return &cajaService{repo: repo, cajaMayor: cajaMayor}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error) {
	if req.PuntoDeVenta < 1 {
		return nil, validacion("punto_de_venta inválido")
	}
	iniciales := map[model.Moneda]decimal.Decimal{
		model.PYG: req.MontosIniciales.GS,
		model.USD: req.MontosIniciales.USD,
		model.BRL: req.MontosIniciales.BRL,
	}
	for _, m := range model.Monedas {
		if err := validarMonto(m, iniciales[m]); err != nil {
			return nil, err
		}
	}

	// one open session per punto_de_venta
	_, err := s.repo.FindSesionAbiertaPorPDV(ctx, req.PuntoDeVenta)
	if err == nil {
		return nil, conflicto("ya existe una caja abierta en el punto de venta %d", req.PuntoDeVenta)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sesion := &model.SesionCaja{
		PuntoDeVenta:   req.PuntoDeVenta,
		UsuarioID:      usuarioID,
		MontoInicialGS: iniciales[model.PYG],
		MontoInicialUS: iniciales[model.USD],
		MontoInicialRS: iniciales[model.BRL],
		Estado:         sesionAbierta,
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflicto("ya existe una caja abierta en el punto de venta %d", req.PuntoDeVenta)
		}
		return nil, err
	}
	return buildReporte(sesion), nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Ventas and manual ingresos/egresos. Movements are immutable, egresos are
// stored negative.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) error {
	sesionID, err := parseUUID(req.SesionCajaID, "sesion_caja_id")
	if err != nil {
		return err
	}
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return err
	}
	if err := validarMontoPositivo(moneda, req.Monto); err != nil {
		return err
	}
	switch req.Tipo {
	case "venta", "ingreso_manual", "egreso_manual":
	default:
		return validacion("tipo de movimiento de caja no reconocido: %q", req.Tipo)
	}
	switch req.MetodoPago {
	case "efectivo", "pos", "transferencia":
	default:
		return validacion("metodo_pago no reconocido: %q", req.MetodoPago)
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return siNoExiste(err, "sesión de caja no encontrada")
	}
	if sesion.Estado != sesionAbierta {
		return conflicto("la sesión de caja está cerrada")
	}

	monto := req.Monto
	if req.Tipo == "egreso_manual" {
		monto = monto.Neg()
	}
	return s.repo.CreateMovimiento(ctx, &model.MovimientoCaja{
		SesionCajaID: sesionID,
		Tipo:         req.Tipo,
		MetodoPago:   req.MetodoPago,
		Moneda:       moneda,
		Monto:        monto,
		Descripcion:  strings.TrimSpace(req.Descripcion),
		UsuarioID:    usuarioID,
	})
}

// ── Arqueo ────────────────────────────────────────────────────────────────────
// Blind count: expected amounts are computed only after the declaration
// arrives. One transaction closes the session, stores the per-currency count
// and appends a "Cierre de caja" ingreso to the caja mayor for the cash handed in.

func (s *cajaService) Arqueo(ctx context.Context, usuarioID uuid.UUID, req dto.ArqueoRequest) (*dto.ArqueoResponse, error) {
	sesionID, err := parseUUID(req.SesionCajaID, "sesion_caja_id")
	if err != nil {
		return nil, err
	}
	declaraciones := map[model.Moneda]dto.DeclaracionMoneda{
		model.PYG: req.Declaracion.GS,
		model.USD: req.Declaracion.USD,
		model.BRL: req.Declaracion.BRL,
	}
	for _, m := range model.Monedas {
		d := declaraciones[m]
		for _, monto := range []decimal.Decimal{d.Efectivo, d.POS, d.Transferencia} {
			if err := validarMonto(m, monto); err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.repo.FindSesionByID(ctx, sesionID); err != nil {
		return nil, siNoExiste(err, "sesión de caja no encontrada")
	}

	resp := &dto.ArqueoResponse{SesionCajaID: sesionID.String(), Estado: sesionCerrada}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.repo.LockSesionTx(tx, sesionID)
		if err != nil {
			return err
		}
		if sesion.Estado != sesionAbierta {
			return conflicto("la sesión de caja ya está cerrada")
		}
		sums, err := s.repo.SumMovimientosByMetodo(tx, sesionID)
		if err != nil {
			return err
		}

		arqueos := make([]model.ArqueoCaja, 0, len(model.Monedas))
		peor := desvioNormal
		for _, m := range model.Monedas {
			a := calcularArqueo(m, sesion.MontoInicial(m), sums[m], declaraciones[m])
			a.SesionCajaID = sesionID
			if gravedad(a.Clasificacion) > gravedad(peor) {
				peor = a.Clasificacion
			}
			arqueos = append(arqueos, a)
		}
		if peor == desvioCritico && (req.Observaciones == nil || strings.TrimSpace(*req.Observaciones) == "") {
			return validacion("desvío crítico: se requieren observaciones del supervisor")
		}

		for i := range arqueos {
			a := &arqueos[i]
			if !a.DeclaradoEfectivo.IsPositive() {
				continue
			}
			mov, err := s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
				Moneda:         a.Moneda,
				Monto:          a.DeclaradoEfectivo,
				Tipo:           model.TipoCierreCaja,
				UsuarioID:      usuarioID,
				Concepto:       fmt.Sprintf("Cierre de caja PDV %d", sesion.PuntoDeVenta),
				ReferenciaTipo: model.RefSesionCaja,
				ReferenciaID:   &sesionID,
			})
			if err != nil {
				return err
			}
			a.MovimientoCajaMayorID = &mov.ID
		}
		if err := s.repo.CreateArqueosTx(tx, arqueos); err != nil {
			return err
		}

		n, err := s.repo.CerrarSesionTx(tx, sesionID, peor, req.Observaciones, ahora())
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("la sesión de caja ya está cerrada")
		}

		resp.Clasificacion = peor
		for i := range arqueos {
			resp.Monedas = append(resp.Monedas, arqueoToResponse(&arqueos[i]))
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, siNoExiste(err, "sesión de caja no encontrada")
	}
	return buildReporte(sesion), nil
}

func (s *cajaService) GetActiva(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		return nil, siNoExiste(err, "no hay sesión de caja abierta")
	}
	return buildReporte(sesion), nil
}

func (s *cajaService) Historial(ctx context.Context, p dto.Paginacion) (*dto.SesionCajaListResponse, error) {
	sesiones, total, err := s.repo.ListSesiones(ctx, p.Offset(), p.Limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ReporteCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *buildReporte(&sesiones[i]))
	}
	return &dto.SesionCajaListResponse{Data: data, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

var cien = decimal.NewFromInt(100)

func calcularArqueo(m model.Moneda, inicial decimal.Decimal, sums map[string]decimal.Decimal, d dto.DeclaracionMoneda) model.ArqueoCaja {
	a := model.ArqueoCaja{
		Moneda:                 m,
		EsperadoEfectivo:       inicial.Add(sums["efectivo"]),
		EsperadoPOS:            sums["pos"],
		EsperadoTransferencia:  sums["transferencia"],
		DeclaradoEfectivo:      d.Efectivo,
		DeclaradoPOS:           d.POS,
		DeclaradoTransferencia: d.Transferencia,
	}
	esperado := a.EsperadoEfectivo.Add(a.EsperadoPOS).Add(a.EsperadoTransferencia)
	declarado := a.DeclaradoEfectivo.Add(a.DeclaradoPOS).Add(a.DeclaradoTransferencia)
	a.Desvio = declarado.Sub(esperado)
	a.DesvioPct = desvioPorcentual(a.Desvio, esperado)
	a.Clasificacion = clasificarDesvio(a.DesvioPct)
	return a
}

// desvioPorcentual is desvio over esperado in percent. With nothing expected
// any declared amount is a full deviation.
func desvioPorcentual(desvio, esperado decimal.Decimal) decimal.Decimal {
	if esperado.IsZero() {
		switch desvio.Sign() {
		case 1:
			return cien
		case -1:
			return cien.Neg()
		}
		return decimal.Zero
	}
	return desvio.Div(esperado.Abs()).Mul(cien).Round(2)
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return desvioNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return desvioAdvertencia
	default:
		return desvioCritico
	}
}

func gravedad(clasificacion string) int {
	switch clasificacion {
	case desvioCritico:
		return 2
	case desvioAdvertencia:
		return 1
	}
	return 0
}

func arqueoToResponse(a *model.ArqueoCaja) dto.ArqueoMonedaResponse {
	esperado := dto.MontosPorMetodo{
		Efectivo:      a.EsperadoEfectivo,
		POS:           a.EsperadoPOS,
		Transferencia: a.EsperadoTransferencia,
	}
	esperado.Total = esperado.Efectivo.Add(esperado.POS).Add(esperado.Transferencia)
	declarado := dto.MontosPorMetodo{
		Efectivo:      a.DeclaradoEfectivo,
		POS:           a.DeclaradoPOS,
		Transferencia: a.DeclaradoTransferencia,
	}
	declarado.Total = declarado.Efectivo.Add(declarado.POS).Add(declarado.Transferencia)
	return dto.ArqueoMonedaResponse{
		Moneda:         string(a.Moneda),
		MontoEsperado:  esperado,
		MontoDeclarado: declarado,
		Desvio: dto.DesvioResponse{
			Monto:         a.Desvio,
			Porcentaje:    a.DesvioPct,
			Clasificacion: a.Clasificacion,
		},
		MovimientoCajaMayorID: uuidPtrString(a.MovimientoCajaMayorID),
	}
}

// buildReporte never exposes expected amounts of an open session.
func buildReporte(sesion *model.SesionCaja) *dto.ReporteCajaResponse {
	reporte := &dto.ReporteCajaResponse{
		SesionCajaID: sesion.ID.String(),
		PuntoDeVenta: sesion.PuntoDeVenta,
		UsuarioID:    sesion.UsuarioID.String(),
		MontosIniciales: dto.MontosMoneda{
			GS:  sesion.MontoInicialGS,
			USD: sesion.MontoInicialUS,
			BRL: sesion.MontoInicialRS,
		},
		Arqueo:        make([]dto.ArqueoMonedaResponse, 0, len(sesion.Arqueos)),
		Clasificacion: sesion.ClasificacionDesvio,
		Estado:        sesion.Estado,
		Observaciones: sesion.Observaciones,
		OpenedAt:      fmtFechaHora(sesion.OpenedAt),
		ClosedAt:      fmtFechaHoraPtr(sesion.ClosedAt),
	}
	if sesion.Estado == sesionCerrada {
		for i := range sesion.Arqueos {
			reporte.Arqueo = append(reporte.Arqueo, arqueoToResponse(&sesion.Arqueos[i]))
		}
	}
	return reporte
}
