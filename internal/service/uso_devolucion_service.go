package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type UsoDevolucionService interface {
	Crear(ctx context.Context, actor uuid.UUID, req dto.CrearUsoDevolucionRequest) (*dto.CrearUsoDevolucionResponse, error)
	Anular(ctx context.Context, id, actor uuid.UUID, motivo string) error
	// CompletarAnulacion appends the caja mayor reversal entries of a voided
	// operation that are still missing. Safe to call repeatedly.
	CompletarAnulacion(ctx context.Context, id uuid.UUID) error
	// AnulacionesIncompletas lists voids older than antiguedad whose caja
	// mayor reversal is still missing.
	AnulacionesIncompletas(ctx context.Context, antiguedad time.Duration, limit int) ([]uuid.UUID, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.UsoDevolucionResponse, error)
	Listar(ctx context.Context, filter dto.UsoDevolucionFilter) (*dto.UsoDevolucionListResponse, error)
}

type usoDevolucionService struct {
	repo        repository.UsoDevolucionRepository
	personaRepo repository.PersonaRepository
	cajaMayor   CajaMayorService
	cajaRepo    repository.CajaMayorRepository
	encolador   Encolador
}

func NewUsoDevolucionService(
	repo repository.UsoDevolucionRepository,
	personaRepo repository.PersonaRepository,
	cajaMayor CajaMayorService,
	cajaRepo repository.CajaMayorRepository,
	encolador Encolador,
) UsoDevolucionService {
	return &usoDevolucionService{
		repo:        repo,
		personaRepo: personaRepo,
		cajaMayor:   cajaMayor,
		cajaRepo:    cajaRepo,
		encolador:   encolador,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// One transaction:
//   1. insert the multi-currency row
//   2. per non-zero currency: persona balance delta (USO −, DEVOLUCION +)
//   3. per non-zero currency: caja mayor entry (USO ingreso, DEVOLUCION egreso)
// Any failure rolls back all three.

func (s *usoDevolucionService) Crear(ctx context.Context, actor uuid.UUID, req dto.CrearUsoDevolucionRequest) (*dto.CrearUsoDevolucionResponse, error) {
	personaID, err := parseUUID(req.PersonaID, "persona_id")
	if err != nil {
		return nil, err
	}
	tipo := model.TipoUsoDevolucion(strings.ToUpper(strings.TrimSpace(req.Tipo)))
	if !tipo.Valido() {
		return nil, validacion("tipo debe ser USO o DEVOLUCION")
	}
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, validacion("motivo es obligatorio")
	}

	op := model.UsoDevolucion{
		PersonaID:      personaID,
		Tipo:           tipo,
		MontoGuaranies: req.MontoGuaranies,
		MontoDolares:   req.MontoDolares,
		MontoReales:    req.MontoReales,
		Motivo:         motivo,
		Estado:         model.EstadoActivo,
		UsuarioID:      actor,
	}
	for _, mm := range []model.MontoMoneda{{Moneda: model.PYG, Monto: op.MontoGuaranies}, {Moneda: model.USD, Monto: op.MontoDolares}, {Moneda: model.BRL, Monto: op.MontoReales}} {
		if err := validarMonto(mm.Moneda, mm.Monto); err != nil {
			return nil, err
		}
	}
	montos := op.Montos()
	if len(montos) == 0 {
		return nil, validacion("debe indicar al menos un monto mayor a cero")
	}

	persona, err := s.personaRepo.FindByID(ctx, personaID)
	if err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}

	tipoCaja := model.TipoUso
	if tipo == model.Devolucion {
		tipoCaja = model.TipoDevolucion
	}

	var movs []model.MovimientoCajaMayor
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, &op); err != nil {
			return err
		}
		for _, mm := range montos {
			if _, err := s.personaRepo.AplicarDeltaTx(tx, personaID, mm.Moneda, op.DeltaPersona(mm.Monto)); err != nil {
				return err
			}
			mov, err := s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
				Moneda:         mm.Moneda,
				Monto:          mm.Monto,
				Tipo:           tipoCaja,
				UsuarioID:      actor,
				Concepto:       fmt.Sprintf("%s - %s: %s", tipoCaja, persona.Nombre, motivo),
				ReferenciaTipo: model.RefUsoDevolucion,
				ReferenciaID:   &op.ID,
			})
			if err != nil {
				return err
			}
			movs = append(movs, *mov)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	saldos, err := saldosPersona(ctx, s.personaRepo, personaID)
	if err != nil {
		return nil, err
	}
	op.Persona = persona
	resp := &dto.CrearUsoDevolucionResponse{
		Operacion:       *usoDevolucionToResponse(&op),
		SaldosPersona:   saldos,
		MovimientosCaja: make([]dto.MovimientoCajaMayorResponse, 0, len(movs)),
	}
	for i := range movs {
		resp.MovimientosCaja = append(resp.MovimientosCaja, *movimientoCajaMayorToResponse(&movs[i]))
	}
	return resp, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────
// Primary transaction: flip the status and reverse the persona balance.
// Secondary, best-effort: the caja mayor reversal entries. A failure there is
// logged and queued for retry; the void itself stands.

func (s *usoDevolucionService) Anular(ctx context.Context, id, actor uuid.UUID, motivo string) error {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return validacion("motivo es obligatorio")
	}
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return siNoExiste(err, "operación no encontrada")
	}
	if op.Estado != model.EstadoActivo {
		return conflicto("la operación ya está anulada")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.MarcarAnuladoTx(tx, id, actor, motivo, ahora())
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("la operación ya está anulada")
		}
		for _, mm := range op.Montos() {
			if _, err := s.personaRepo.AplicarDeltaTx(tx, op.PersonaID, mm.Moneda, op.DeltaPersona(mm.Monto).Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	if err := s.CompletarAnulacion(ctx, id); err != nil {
		log.Error().Err(err).
			Bool("bestEffort", true).
			Str("uso_devolucion_id", id.String()).
			Msg("anulación registrada sin asiento en caja mayor; se reintentará")
		encolarReintento(ctx, s.encolador, Reintento{Origen: ReintentoAnulacion, ID: id})
	}
	return nil
}

func (s *usoDevolucionService) CompletarAnulacion(ctx context.Context, id uuid.UUID) error {
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return siNoExiste(err, "operación no encontrada")
	}
	if op.Estado != model.EstadoAnulado {
		return nil
	}

	tipo := model.TipoAnulacionUso
	if op.Tipo == model.Devolucion {
		tipo = model.TipoAnulacionDevolucion
	}

	// hint only; the authoritative check runs under the currency lock below
	var pendientes []model.MontoMoneda
	for _, mm := range op.Montos() {
		_, existe, err := s.cajaRepo.ExisteReferencia(ctx, model.RefUsoDevolucion, id, tipo, mm.Moneda)
		if err != nil {
			return err
		}
		if !existe {
			pendientes = append(pendientes, mm)
		}
	}
	if len(pendientes) == 0 {
		return nil
	}

	nombre := op.PersonaID.String()
	if op.Persona != nil {
		nombre = op.Persona.Nombre
	}
	motivo := ""
	if op.MotivoAnulacion != nil {
		motivo = *op.MotivoAnulacion
	}
	actor := op.UsuarioID
	if op.AnuladoPor != nil {
		actor = *op.AnuladoPor
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, mm := range pendientes {
			if _, err := s.cajaRepo.LockSaldoTx(tx, mm.Moneda); err != nil {
				return err
			}
			_, existe, err := s.cajaRepo.ExisteReferenciaTx(tx, model.RefUsoDevolucion, id, tipo, mm.Moneda)
			if err != nil {
				return err
			}
			if existe {
				continue
			}
			_, err = s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
				Moneda:         mm.Moneda,
				Monto:          mm.Monto,
				Tipo:           tipo,
				UsuarioID:      actor,
				Concepto:       fmt.Sprintf("%s - %s: %s", tipo, nombre, motivo),
				ReferenciaTipo: model.RefUsoDevolucion,
				ReferenciaID:   &op.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another completer committed the same entry first
		return nil
	}
	return err
}

func (s *usoDevolucionService) AnulacionesIncompletas(ctx context.Context, antiguedad time.Duration, limit int) ([]uuid.UUID, error) {
	return s.repo.ListAnuladasSinAsiento(ctx, ahora().Add(-antiguedad), limit)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *usoDevolucionService) Obtener(ctx context.Context, id uuid.UUID) (*dto.UsoDevolucionResponse, error) {
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "operación no encontrada")
	}
	return usoDevolucionToResponse(op), nil
}

func (s *usoDevolucionService) Listar(ctx context.Context, filter dto.UsoDevolucionFilter) (*dto.UsoDevolucionListResponse, error) {
	ops, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.UsoDevolucionResponse, 0, len(ops))
	for i := range ops {
		data = append(data, *usoDevolucionToResponse(&ops[i]))
	}
	return &dto.UsoDevolucionListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// encolarReintento queues a best-effort write; a queue failure is only logged,
// the reconciliation cron or an operator picks it up later.
func encolarReintento(ctx context.Context, enc Encolador, r Reintento) {
	if enc == nil {
		return
	}
	if err := enc.EncolarReintento(ctx, r); err != nil {
		log.Error().Err(err).
			Str("origen", r.Origen).
			Str("id", r.ID.String()).
			Msg("no se pudo encolar el reintento")
	}
}

func usoDevolucionToResponse(u *model.UsoDevolucion) *dto.UsoDevolucionResponse {
	resp := &dto.UsoDevolucionResponse{
		ID:              u.ID.String(),
		PersonaID:       u.PersonaID.String(),
		Tipo:            string(u.Tipo),
		MontoGuaranies:  u.MontoGuaranies,
		MontoDolares:    u.MontoDolares,
		MontoReales:     u.MontoReales,
		Motivo:          u.Motivo,
		Estado:          u.Estado,
		MotivoAnulacion: u.MotivoAnulacion,
		AnuladoAt:       fmtFechaHoraPtr(u.AnuladoAt),
		UsuarioID:       u.UsuarioID.String(),
		CreatedAt:       fmtFechaHora(u.CreatedAt),
	}
	if u.Persona != nil {
		resp.PersonaNombre = u.Persona.Nombre
	}
	return resp
}
