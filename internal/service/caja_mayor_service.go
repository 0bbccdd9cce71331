package service

import (
	"context"
	"fmt"
	"strings"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegistrarMovimientoRequest is an append to the main cash ledger.
// Monto is unsigned; the direction comes from Tipo.
type RegistrarMovimientoRequest struct {
	Moneda         model.Moneda
	Monto          decimal.Decimal
	Tipo           model.TipoCajaMayor
	UsuarioID      uuid.UUID
	Concepto       string
	ReferenciaTipo string
	ReferenciaID   *uuid.UUID
}

type CajaMayorService interface {
	// RegistrarMovimientoTx appends inside the caller's transaction.
	RegistrarMovimientoTx(tx *gorm.DB, req RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error)
	// RegistrarMovimiento appends in a transaction of its own.
	RegistrarMovimiento(ctx context.Context, req RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error)
	RegistrarManual(ctx context.Context, actor uuid.UUID, req dto.MovimientoCajaMayorRequest) (*dto.MovimientoCajaMayorResponse, error)
	AnularManual(ctx context.Context, id, actor uuid.UUID, motivo string) (*dto.MovimientoCajaMayorResponse, error)
	Listar(ctx context.Context, filter dto.CajaMayorFilter) (*dto.CajaMayorListResponse, error)
	Saldos(ctx context.Context) (*dto.SaldosCajaMayorResponse, error)
}

type cajaMayorService struct {
	repo repository.CajaMayorRepository
}

func NewCajaMayorService(repo repository.CajaMayorRepository) CajaMayorService {
	return &cajaMayorService{repo: repo}
}

// ── RegistrarMovimientoTx ─────────────────────────────────────────────────────
//   1. validate before any write
//   2. lock the currency snapshot row (created at zero when absent)
//   3. nuevo = anterior ± monto
//   4. insert the entry with both balances
//   5. persist the snapshot

func (s *cajaMayorService) RegistrarMovimientoTx(tx *gorm.DB, req RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error) {
	if !req.Moneda.Valida() {
		return nil, validacion("moneda no reconocida: %q", req.Moneda)
	}
	if !req.Tipo.Valido() {
		return nil, validacion("tipo de movimiento no reconocido: %q", req.Tipo)
	}
	if err := validarMonto(req.Moneda, req.Monto); err != nil {
		return nil, err
	}
	if req.ReferenciaTipo == "" {
		req.ReferenciaTipo = model.RefManual
	}

	saldo, err := s.repo.LockSaldoTx(tx, req.Moneda)
	if err != nil {
		return nil, err
	}

	mov := &model.MovimientoCajaMayor{
		Tipo:           req.Tipo,
		EsIngreso:      req.Tipo.EsIngreso(),
		Moneda:         req.Moneda,
		Monto:          req.Monto,
		SaldoAnterior:  saldo.Saldo,
		Concepto:       req.Concepto,
		ReferenciaTipo: req.ReferenciaTipo,
		ReferenciaID:   req.ReferenciaID,
		UsuarioID:      req.UsuarioID,
	}
	mov.SaldoActual = saldo.Saldo.Add(mov.Firmado())

	if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSaldoTx(tx, req.Moneda, mov.SaldoActual); err != nil {
		return nil, err
	}
	return mov, nil
}

func (s *cajaMayorService) RegistrarMovimiento(ctx context.Context, req RegistrarMovimientoRequest) (*model.MovimientoCajaMayor, error) {
	var mov *model.MovimientoCajaMayor
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		mov, err = s.RegistrarMovimientoTx(tx, req)
		return err
	})
	return mov, err
}

// ── Manual entries ────────────────────────────────────────────────────────────

func (s *cajaMayorService) RegistrarManual(ctx context.Context, actor uuid.UUID, req dto.MovimientoCajaMayorRequest) (*dto.MovimientoCajaMayorResponse, error) {
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return nil, err
	}
	if err := validarMontoPositivo(moneda, req.Monto); err != nil {
		return nil, err
	}
	concepto := strings.TrimSpace(req.Concepto)
	if concepto == "" {
		return nil, validacion("concepto es obligatorio")
	}

	tipo := model.TipoIngresoManual
	switch req.Tipo {
	case "ingreso":
	case "egreso":
		tipo = model.TipoEgresoManual
	default:
		return nil, validacion("tipo debe ser ingreso o egreso")
	}

	mov, err := s.RegistrarMovimiento(ctx, RegistrarMovimientoRequest{
		Moneda:         moneda,
		Monto:          req.Monto,
		Tipo:           tipo,
		UsuarioID:      actor,
		Concepto:       concepto,
		ReferenciaTipo: model.RefManual,
	})
	if err != nil {
		return nil, err
	}
	return movimientoCajaMayorToResponse(mov), nil
}

// AnularManual voids a manual entry by appending the opposite manual entry.
// Entries produced by other flows are reversed through their own operation.
func (s *cajaMayorService) AnularManual(ctx context.Context, id, actor uuid.UUID, motivo string) (*dto.MovimientoCajaMayorResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, validacion("motivo es obligatorio")
	}

	orig, err := s.repo.FindMovimientoByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "movimiento de caja mayor no encontrado")
	}
	var inverso model.TipoCajaMayor
	switch orig.Tipo {
	case model.TipoIngresoManual:
		inverso = model.TipoEgresoManual
	case model.TipoEgresoManual:
		inverso = model.TipoIngresoManual
	default:
		return nil, conflicto("solo los movimientos manuales se anulan directamente")
	}
	if orig.Anulado {
		return nil, conflicto("el movimiento ya está anulado")
	}
	if orig.ReferenciaID != nil {
		return nil, conflicto("un asiento de anulación no puede anularse")
	}

	var mov *model.MovimientoCajaMayor
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.MarcarAnuladoTx(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("el movimiento ya está anulado")
		}
		mov, err = s.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
			Moneda:         orig.Moneda,
			Monto:          orig.Monto,
			Tipo:           inverso,
			UsuarioID:      actor,
			Concepto:       fmt.Sprintf("Anulación de %q: %s", orig.Concepto, motivo),
			ReferenciaTipo: model.RefManual,
			ReferenciaID:   &orig.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movimientoCajaMayorToResponse(mov), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *cajaMayorService) Listar(ctx context.Context, filter dto.CajaMayorFilter) (*dto.CajaMayorListResponse, error) {
	if filter.Moneda != "" {
		if _, err := parseMoneda(filter.Moneda); err != nil {
			return nil, err
		}
	}
	movs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoCajaMayorResponse, 0, len(movs))
	for i := range movs {
		data = append(data, *movimientoCajaMayorToResponse(&movs[i]))
	}
	return &dto.CajaMayorListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *cajaMayorService) Saldos(ctx context.Context) (*dto.SaldosCajaMayorResponse, error) {
	rows, err := s.repo.Saldos(ctx)
	if err != nil {
		return nil, err
	}
	saldos := map[model.Moneda]decimal.Decimal{}
	for _, r := range rows {
		saldos[r.Moneda] = r.Saldo
	}
	return &dto.SaldosCajaMayorResponse{Saldos: saldosCompletos(saldos)}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func movimientoCajaMayorToResponse(m *model.MovimientoCajaMayor) *dto.MovimientoCajaMayorResponse {
	return &dto.MovimientoCajaMayorResponse{
		ID:             m.ID.String(),
		Tipo:           string(m.Tipo),
		EsIngreso:      m.EsIngreso,
		Moneda:         string(m.Moneda),
		Monto:          m.Monto,
		SaldoAnterior:  m.SaldoAnterior,
		SaldoActual:    m.SaldoActual,
		Concepto:       m.Concepto,
		ReferenciaTipo: m.ReferenciaTipo,
		ReferenciaID:   uuidPtrString(m.ReferenciaID),
		Anulado:        m.Anulado,
		UsuarioID:      m.UsuarioID.String(),
		CreatedAt:      fmtFechaHora(m.CreatedAt),
	}
}
