package service

import (
	"context"
	"errors"
	"strings"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// aporteIPS is the employee's social security contribution over the minimum wage.
var aporteIPS = decimal.RequireFromString("0.09")

type RRHHService interface {
	CrearMovimiento(ctx context.Context, actor uuid.UUID, req dto.CrearMovimientoRRHHRequest) (*dto.MovimientoRRHHResponse, error)
	AnularMovimiento(ctx context.Context, id uuid.UUID) error
	CrearVale(ctx context.Context, actor uuid.UUID, req dto.CrearValeRequest) (*dto.ValeResponse, error)
	AnularVale(ctx context.Context, id uuid.UUID) error
	RegistrarSueldo(ctx context.Context, actor uuid.UUID, req dto.RegistrarSueldoRequest) (*dto.SueldoResponse, error)

	FinalizarMes(ctx context.Context, actor uuid.UUID, req dto.FinalizarMesRequest) (*dto.ResumenRRHHResponse, error)
	ReabrirMes(ctx context.Context, actor uuid.UUID, req dto.ReabrirMesRequest) (*dto.ResumenRRHHResponse, error)
	// GetMovimientos returns the frozen lines of a finalized month, or a live
	// recompute of an open one. cot may be nil on an open month.
	GetMovimientos(ctx context.Context, personaID uuid.UUID, mes, anio int, cot *dto.Cotizaciones) (*dto.ResumenRRHHResponse, error)
	// ResumenParaEnvio loads a finalized summary by id plus the persona's
	// e-mail address, for the summary mail job.
	ResumenParaEnvio(ctx context.Context, resumenID uuid.UUID) (*dto.ResumenRRHHResponse, string, error)
}

type rrhhService struct {
	repo          repository.RRHHRepository
	personaRepo   repository.PersonaRepository
	salarioMinimo decimal.Decimal
	encolador     Encolador
}

func NewRRHHService(
	repo repository.RRHHRepository,
	personaRepo repository.PersonaRepository,
	salarioMinimo decimal.Decimal,
	encolador Encolador,
) RRHHService {
	return &rrhhService{
		repo:          repo,
		personaRepo:   personaRepo,
		salarioMinimo: salarioMinimo,
		encolador:     encolador,
	}
}

// ── Supporting records ───────────────────────────────────────────────────────

func (s *rrhhService) CrearMovimiento(ctx context.Context, actor uuid.UUID, req dto.CrearMovimientoRRHHRequest) (*dto.MovimientoRRHHResponse, error) {
	personaID, err := s.validarPeriodoAbierto(ctx, req.PeriodoRRHH)
	if err != nil {
		return nil, err
	}
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return nil, err
	}
	if err := validarMontoPositivo(moneda, req.Monto); err != nil {
		return nil, err
	}
	tipo := strings.TrimSpace(req.Tipo)
	concepto := strings.TrimSpace(req.Concepto)
	if tipo == "" || concepto == "" {
		return nil, validacion("tipo y concepto son obligatorios")
	}

	m := &model.MovimientoRRHH{
		PersonaID: personaID,
		Mes:       req.Mes,
		Anio:      req.Anio,
		Tipo:      tipo,
		EsIngreso: req.EsIngreso,
		Moneda:    moneda,
		Monto:     req.Monto,
		Concepto:  concepto,
		UsuarioID: actor,
	}
	if err := s.repo.CreateMovimiento(ctx, m); err != nil {
		return nil, err
	}
	return movimientoRRHHToResponse(m), nil
}

func (s *rrhhService) AnularMovimiento(ctx context.Context, id uuid.UUID) error {
	m, err := s.repo.FindMovimientoByID(ctx, id)
	if err != nil {
		return siNoExiste(err, "movimiento de RRHH no encontrado")
	}
	if err := s.exigirAbierto(ctx, m.PersonaID, m.Mes, m.Anio); err != nil {
		return err
	}
	n, err := s.repo.AnularMovimiento(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return conflicto("el movimiento ya está anulado")
	}
	return nil
}

func (s *rrhhService) CrearVale(ctx context.Context, actor uuid.UUID, req dto.CrearValeRequest) (*dto.ValeResponse, error) {
	personaID, err := parseUUID(req.PersonaID, "persona_id")
	if err != nil {
		return nil, err
	}
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return nil, err
	}
	if err := validarMontoPositivo(moneda, req.Monto); err != nil {
		return nil, err
	}
	vence, err := parseFecha(req.FechaVencimiento, "fecha_vencimiento")
	if err != nil {
		return nil, err
	}
	if _, err := s.personaRepo.FindByID(ctx, personaID); err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}
	if err := s.exigirAbierto(ctx, personaID, int(vence.Month()), vence.Year()); err != nil {
		return nil, err
	}

	v := &model.Vale{
		PersonaID:        personaID,
		Moneda:           moneda,
		Monto:            req.Monto,
		FechaVencimiento: vence,
		Concepto:         strings.TrimSpace(req.Concepto),
		UsuarioID:        actor,
	}
	if err := s.repo.CreateVale(ctx, v); err != nil {
		return nil, err
	}
	return valeToResponse(v), nil
}

func (s *rrhhService) AnularVale(ctx context.Context, id uuid.UUID) error {
	v, err := s.repo.FindValeByID(ctx, id)
	if err != nil {
		return siNoExiste(err, "vale no encontrado")
	}
	if err := s.exigirAbierto(ctx, v.PersonaID, int(v.FechaVencimiento.Month()), v.FechaVencimiento.Year()); err != nil {
		return err
	}
	n, err := s.repo.AnularVale(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return conflicto("el vale ya está anulado")
	}
	return nil
}

func (s *rrhhService) RegistrarSueldo(ctx context.Context, actor uuid.UUID, req dto.RegistrarSueldoRequest) (*dto.SueldoResponse, error) {
	personaID, err := parseUUID(req.PersonaID, "persona_id")
	if err != nil {
		return nil, err
	}
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return nil, err
	}
	if err := validarMontoPositivo(moneda, req.Monto); err != nil {
		return nil, err
	}
	desde, err := parseFecha(req.VigenteDesde, "vigente_desde")
	if err != nil {
		return nil, err
	}
	if _, err := s.personaRepo.FindByID(ctx, personaID); err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}

	sueldo := &model.Sueldo{
		PersonaID:    personaID,
		Moneda:       moneda,
		Monto:        req.Monto,
		VigenteDesde: desde,
		UsuarioID:    actor,
	}
	if err := s.repo.CreateSueldo(ctx, sueldo); err != nil {
		return nil, err
	}
	return &dto.SueldoResponse{
		ID:           sueldo.ID.String(),
		PersonaID:    personaID.String(),
		Moneda:       string(moneda),
		Monto:        sueldo.Monto,
		VigenteDesde: fmtFecha(sueldo.VigenteDesde),
	}, nil
}

// ── FinalizarMes ──────────────────────────────────────────────────────────────
// One transaction under the resumen row lock:
//   1. collect sueldo, manual adjustments, vales due and IPS
//   2. replace the frozen rows of the resumen
//   3. store totals, TotalFinalGS and the rates used
// The summary e-mail is queued after commit.

func (s *rrhhService) FinalizarMes(ctx context.Context, actor uuid.UUID, req dto.FinalizarMesRequest) (*dto.ResumenRRHHResponse, error) {
	personaID, err := parseUUID(req.PersonaID, "persona_id")
	if err != nil {
		return nil, err
	}
	if err := validarPeriodo(req.Mes, req.Anio); err != nil {
		return nil, err
	}
	if !req.Cotizaciones.USD.IsPositive() || !req.Cotizaciones.BRL.IsPositive() {
		return nil, validacion("las cotizaciones USD y BRL deben ser mayores a cero")
	}
	persona, err := s.personaRepo.FindByID(ctx, personaID)
	if err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}

	cot := model.Cotizaciones{USD: req.Cotizaciones.USD, BRL: req.Cotizaciones.BRL}
	var (
		resumen *model.ResumenMesRRHH
		lineas  []model.MovimientoRRHHFinalizado
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		resumen, err = s.repo.LockResumenTx(tx, personaID, req.Mes, req.Anio)
		if err != nil {
			return err
		}
		if resumen.Finalizado {
			return conflicto("el mes %02d/%d ya está finalizado", req.Mes, req.Anio)
		}

		lineas, err = s.lineasPeriodo(tx, persona, req.Mes, req.Anio)
		if err != nil {
			return err
		}
		for i := range lineas {
			lineas[i].ResumenID = resumen.ID
		}
		if err := s.repo.DeleteFinalizadosTx(tx, resumen.ID); err != nil {
			return err
		}
		if err := s.repo.CreateFinalizadosTx(tx, lineas); err != nil {
			return err
		}

		gs, usd, brl := totalesPorMoneda(lineas)
		now := ahora()
		resumen.TotalGS = gs
		resumen.TotalUSD = usd
		resumen.TotalBRL = brl
		resumen.TotalFinalGS = totalFinalGS(gs, usd, brl, cot)
		resumen.CotizacionesUsadas = datatypes.NewJSONType(cot)
		resumen.Finalizado = true
		resumen.FechaFinalizacion = &now
		resumen.UsuarioFinalizaID = &actor
		return s.repo.SaveResumenTx(tx, resumen)
	})
	if txErr != nil {
		return nil, txErr
	}

	if persona.Email != nil && *persona.Email != "" && s.encolador != nil {
		if err := s.encolador.EncolarResumenRRHH(ctx, resumen.ID); err != nil {
			log.Error().Err(err).
				Bool("bestEffort", true).
				Str("resumen_id", resumen.ID.String()).
				Msg("no se pudo encolar el envío del resumen")
		}
	}
	return resumenToResponse(resumen, persona, lineas), nil
}

// ReabrirMes flips a finalized month back to open. The frozen rows stay until
// the next finalization replaces them.
func (s *rrhhService) ReabrirMes(ctx context.Context, actor uuid.UUID, req dto.ReabrirMesRequest) (*dto.ResumenRRHHResponse, error) {
	personaID, err := parseUUID(req.PersonaID, "persona_id")
	if err != nil {
		return nil, err
	}
	if err := validarPeriodo(req.Mes, req.Anio); err != nil {
		return nil, err
	}
	resumen, err := s.repo.FindResumen(s.repo.DB().WithContext(ctx), personaID, req.Mes, req.Anio)
	if err != nil {
		return nil, siNoExiste(err, "no existe resumen para el período")
	}
	if !resumen.Finalizado {
		return nil, conflicto("el mes %02d/%d no está finalizado", req.Mes, req.Anio)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.ReabrirTx(tx, resumen.ID, actor, ahora())
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("el mes %02d/%d no está finalizado", req.Mes, req.Anio)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetMovimientos(ctx, personaID, req.Mes, req.Anio, nil)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *rrhhService) GetMovimientos(ctx context.Context, personaID uuid.UUID, mes, anio int, cot *dto.Cotizaciones) (*dto.ResumenRRHHResponse, error) {
	if err := validarPeriodo(mes, anio); err != nil {
		return nil, err
	}
	persona, err := s.personaRepo.FindByID(ctx, personaID)
	if err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}

	db := s.repo.DB().WithContext(ctx)
	resumen, err := s.repo.FindResumen(db, personaID, mes, anio)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		resumen = &model.ResumenMesRRHH{PersonaID: personaID, Mes: mes, Anio: anio}
	case err != nil:
		return nil, err
	}

	if resumen.Finalizado {
		lineas, err := s.repo.ListFinalizados(ctx, resumen.ID)
		if err != nil {
			return nil, err
		}
		return resumenToResponse(resumen, persona, lineas), nil
	}

	lineas, err := s.lineasPeriodo(db, persona, mes, anio)
	if err != nil {
		return nil, err
	}
	resp := resumenToResponse(resumen, persona, lineas)
	resp.TotalGS, resp.TotalUSD, resp.TotalBRL = totalesPorMoneda(lineas)
	resp.TotalFinalGS = nil
	resp.Cotizaciones = nil
	if cot != nil {
		if !cot.USD.IsPositive() || !cot.BRL.IsPositive() {
			return nil, validacion("las cotizaciones USD y BRL deben ser mayores a cero")
		}
		final := totalFinalGS(resp.TotalGS, resp.TotalUSD, resp.TotalBRL, model.Cotizaciones{USD: cot.USD, BRL: cot.BRL})
		resp.TotalFinalGS = &final
		resp.Cotizaciones = cot
	}
	return resp, nil
}

func (s *rrhhService) ResumenParaEnvio(ctx context.Context, resumenID uuid.UUID) (*dto.ResumenRRHHResponse, string, error) {
	resumen, err := s.repo.FindResumenByID(ctx, resumenID)
	if err != nil {
		return nil, "", siNoExiste(err, "resumen no encontrado")
	}
	if !resumen.Finalizado {
		return nil, "", conflicto("el resumen fue reabierto")
	}
	persona, err := s.personaRepo.FindByID(ctx, resumen.PersonaID)
	if err != nil {
		return nil, "", siNoExiste(err, "persona no encontrada")
	}
	lineas, err := s.repo.ListFinalizados(ctx, resumen.ID)
	if err != nil {
		return nil, "", err
	}
	email := ""
	if persona.Email != nil {
		email = *persona.Email
	}
	return resumenToResponse(resumen, persona, lineas), email, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// lineasPeriodo collects the signed lines of a month in display order:
// sueldo, manual adjustments, vales due in the month, IPS.
func (s *rrhhService) lineasPeriodo(db *gorm.DB, persona *model.Persona, mes, anio int) ([]model.MovimientoRRHHFinalizado, error) {
	inicio, fin := limitesPeriodo(mes, anio)
	linea := func(origen string, origenID *uuid.UUID, tipo string, moneda model.Moneda, monto decimal.Decimal, concepto string) model.MovimientoRRHHFinalizado {
		return model.MovimientoRRHHFinalizado{
			PersonaID: persona.ID,
			Mes:       mes,
			Anio:      anio,
			Origen:    origen,
			OrigenID:  origenID,
			Tipo:      tipo,
			Moneda:    moneda,
			Monto:     monto,
			Concepto:  concepto,
		}
	}
	var out []model.MovimientoRRHHFinalizado

	sueldo, err := s.repo.SueldoVigente(db, persona.ID, fin)
	if err != nil {
		return nil, err
	}
	if sueldo != nil {
		l := linea(model.OrigenSueldo, &sueldo.ID, "Sueldo", sueldo.Moneda, sueldo.Monto, "Sueldo del mes")
		l.Fecha = inicio
		out = append(out, l)
	}

	movs, err := s.repo.MovimientosPeriodo(db, persona.ID, mes, anio)
	if err != nil {
		return nil, err
	}
	for i := range movs {
		m := &movs[i]
		monto := m.Monto
		if !m.EsIngreso {
			monto = monto.Neg()
		}
		l := linea(model.OrigenManual, &m.ID, m.Tipo, m.Moneda, monto, m.Concepto)
		l.Fecha = m.CreatedAt
		out = append(out, l)
	}

	vales, err := s.repo.ValesVencen(db, persona.ID, inicio, fin)
	if err != nil {
		return nil, err
	}
	for i := range vales {
		v := &vales[i]
		l := linea(model.OrigenVale, &v.ID, "Vale", v.Moneda, v.Monto.Neg(), v.Concepto)
		l.Fecha = v.FechaVencimiento
		out = append(out, l)
	}

	if persona.AsociadoIPS && s.salarioMinimo.IsPositive() {
		l := linea(model.OrigenIPS, nil, "IPS", model.PYG, s.salarioMinimo.Mul(aporteIPS).Round(0).Neg(), "Aporte IPS 9%")
		l.Fecha = fin.AddDate(0, 0, -1)
		out = append(out, l)
	}
	for i := range out {
		out[i].Orden = i
	}
	return out, nil
}

func totalesPorMoneda(lineas []model.MovimientoRRHHFinalizado) (gs, usd, brl decimal.Decimal) {
	for _, l := range lineas {
		switch l.Moneda {
		case model.PYG:
			gs = gs.Add(l.Monto)
		case model.USD:
			usd = usd.Add(l.Monto)
		case model.BRL:
			brl = brl.Add(l.Monto)
		}
	}
	return gs, usd, brl
}

func totalFinalGS(gs, usd, brl decimal.Decimal, cot model.Cotizaciones) decimal.Decimal {
	return gs.
		Add(cot.AGuaranies(model.USD, usd)).
		Add(cot.AGuaranies(model.BRL, brl)).
		Round(0)
}

// validarPeriodoAbierto parses the period of a request and rejects it when
// the persona is unknown or the month is finalized.
func (s *rrhhService) validarPeriodoAbierto(ctx context.Context, p dto.PeriodoRRHH) (uuid.UUID, error) {
	personaID, err := parseUUID(p.PersonaID, "persona_id")
	if err != nil {
		return uuid.Nil, err
	}
	if err := validarPeriodo(p.Mes, p.Anio); err != nil {
		return uuid.Nil, err
	}
	if _, err := s.personaRepo.FindByID(ctx, personaID); err != nil {
		return uuid.Nil, siNoExiste(err, "persona no encontrada")
	}
	return personaID, s.exigirAbierto(ctx, personaID, p.Mes, p.Anio)
}

func (s *rrhhService) exigirAbierto(ctx context.Context, personaID uuid.UUID, mes, anio int) error {
	resumen, err := s.repo.FindResumen(s.repo.DB().WithContext(ctx), personaID, mes, anio)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if resumen.Finalizado {
		return conflicto("el mes %02d/%d está finalizado; reabralo para modificarlo", mes, anio)
	}
	return nil
}

func resumenToResponse(r *model.ResumenMesRRHH, p *model.Persona, lineas []model.MovimientoRRHHFinalizado) *dto.ResumenRRHHResponse {
	resp := &dto.ResumenRRHHResponse{
		PersonaID:         r.PersonaID.String(),
		PersonaNombre:     p.Nombre,
		Mes:               r.Mes,
		Anio:              r.Anio,
		Finalizado:        r.Finalizado,
		FechaFinalizacion: fmtFechaHoraPtr(r.FechaFinalizacion),
		FechaReapertura:   fmtFechaHoraPtr(r.FechaReapertura),
		Movimientos:       make([]dto.LineaRRHH, 0, len(lineas)),
		TotalGS:           r.TotalGS,
		TotalUSD:          r.TotalUSD,
		TotalBRL:          r.TotalBRL,
	}
	if r.Finalizado {
		final := r.TotalFinalGS
		cot := r.CotizacionesUsadas.Data()
		resp.TotalFinalGS = &final
		resp.Cotizaciones = &dto.Cotizaciones{USD: cot.USD, BRL: cot.BRL}
	}
	for _, l := range lineas {
		resp.Movimientos = append(resp.Movimientos, dto.LineaRRHH{
			Origen:   l.Origen,
			OrigenID: uuidPtrString(l.OrigenID),
			Tipo:     l.Tipo,
			Moneda:   string(l.Moneda),
			Monto:    l.Monto,
			Concepto: l.Concepto,
			Fecha:    fmtFecha(l.Fecha),
		})
	}
	return resp
}

func movimientoRRHHToResponse(m *model.MovimientoRRHH) *dto.MovimientoRRHHResponse {
	return &dto.MovimientoRRHHResponse{
		ID:        m.ID.String(),
		PersonaID: m.PersonaID.String(),
		Mes:       m.Mes,
		Anio:      m.Anio,
		Tipo:      m.Tipo,
		EsIngreso: m.EsIngreso,
		Moneda:    string(m.Moneda),
		Monto:     m.Monto,
		Concepto:  m.Concepto,
		Anulado:   m.Anulado,
	}
}

func valeToResponse(v *model.Vale) *dto.ValeResponse {
	return &dto.ValeResponse{
		ID:               v.ID.String(),
		PersonaID:        v.PersonaID.String(),
		Moneda:           string(v.Moneda),
		Monto:            v.Monto,
		FechaVencimiento: fmtFecha(v.FechaVencimiento),
		Concepto:         v.Concepto,
		Anulado:          v.Anulado,
	}
}
