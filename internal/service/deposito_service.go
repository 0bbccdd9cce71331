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

type DepositoService interface {
	Crear(ctx context.Context, actor uuid.UUID, req dto.CrearDepositoRequest) (*dto.OperacionDepositoResponse, error)
	Cancelar(ctx context.Context, id, actor uuid.UUID, req dto.CancelarDepositoRequest) (*dto.OperacionDepositoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarDepositoRequest) (*dto.DepositoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.DepositoResponse, error)
	Listar(ctx context.Context, filter dto.DepositoFilter) (*dto.DepositoListResponse, error)

	// VincularMovimientoPendiente completes the best-effort caja mayor egreso of
	// a deposit. Safe to call repeatedly and after a cancellation.
	VincularMovimientoPendiente(ctx context.Context, id uuid.UUID) error
	// PendientesDeVinculo lists activo deposits older than antiguedad still
	// lacking their caja mayor entry.
	PendientesDeVinculo(ctx context.Context, antiguedad time.Duration, limit int) ([]uuid.UUID, error)

	CrearBanco(ctx context.Context, req dto.CrearBancoRequest) (*dto.BancoResponse, error)
	ListarBancos(ctx context.Context) ([]dto.BancoResponse, error)
	CrearCuenta(ctx context.Context, req dto.CrearCuentaBancariaRequest) (*dto.CuentaBancariaResponse, error)
	ListarCuentas(ctx context.Context, bancoID *uuid.UUID) ([]dto.CuentaBancariaResponse, error)
}

type depositoService struct {
	repo      repository.DepositoRepository
	bancos    repository.BancoRepository
	cajaMayor CajaMayorService
	cajaRepo  repository.CajaMayorRepository
	encolador Encolador
}

func NewDepositoService(
	repo repository.DepositoRepository,
	bancos repository.BancoRepository,
	cajaMayor CajaMayorService,
	cajaRepo repository.CajaMayorRepository,
	encolador Encolador,
) DepositoService {
	return &depositoService{
		repo:      repo,
		bancos:    bancos,
		cajaMayor: cajaMayor,
		cajaRepo:  cajaRepo,
		encolador: encolador,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// The deposit is committed first; the caja mayor egreso is best-effort. When
// it fails the deposit stays, the failure is logged and a retry is queued.

func (s *depositoService) Crear(ctx context.Context, actor uuid.UUID, req dto.CrearDepositoRequest) (*dto.OperacionDepositoResponse, error) {
	cuentaID, err := parseUUID(req.CuentaBancariaID, "cuenta_bancaria_id")
	if err != nil {
		return nil, err
	}
	boleta := strings.TrimSpace(req.NumeroBoleta)
	if boleta == "" {
		return nil, validacion("numero_boleta es obligatorio")
	}
	if !req.Monto.IsPositive() {
		return nil, validacion("el monto debe ser mayor a cero")
	}

	cuenta, err := s.bancos.FindCuentaByID(ctx, cuentaID)
	if err != nil {
		return nil, siNoExiste(err, "cuenta bancaria no encontrada")
	}
	if err := validarMonto(cuenta.Moneda, req.Monto); err != nil {
		return nil, err
	}

	fecha := ahora().Truncate(24 * time.Hour)
	if req.FechaDeposito != "" {
		if fecha, err = parseFecha(req.FechaDeposito, "fecha_deposito"); err != nil {
			return nil, err
		}
	}

	dep := &model.DepositoBancario{
		CuentaBancariaID: cuentaID,
		NumeroBoleta:     boleta,
		Monto:            req.Monto,
		Moneda:           cuenta.Moneda,
		FechaDeposito:    fecha,
		Observacion:      strings.TrimSpace(req.Observacion),
		ComprobanteURL:   req.ComprobanteURL,
		Estado:           model.EstadoActivo,
		UsuarioID:        actor,
	}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		usada, err := s.repo.BoletaActivaTx(tx, boleta, nil)
		if err != nil {
			return err
		}
		if usada {
			return conflicto("ya existe un depósito activo con la boleta %s", boleta)
		}
		return s.repo.CreateTx(tx, dep)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, conflicto("ya existe un depósito activo con la boleta %s", boleta)
		}
		return nil, txErr
	}
	dep.CuentaBancaria = cuenta

	resp := &dto.OperacionDepositoResponse{}
	mov, err := s.completarEgreso(ctx, dep.ID)
	if err != nil {
		log.Error().Err(err).
			Bool("bestEffort", true).
			Str("deposito_id", dep.ID.String()).
			Str("boleta", boleta).
			Msg("depósito registrado sin egreso en caja mayor; se reintentará")
		encolarReintento(ctx, s.encolador, Reintento{Origen: ReintentoDeposito, ID: dep.ID})
	} else if mov != nil {
		dep.MovimientoID = &mov.ID
		resp.Movimiento = movimientoCajaMayorToResponse(mov)
		resp.SaldoCaja = &mov.SaldoActual
	}
	resp.Deposito = *depositoToResponse(dep)
	return resp, nil
}

// ── Cancelar ──────────────────────────────────────────────────────────────────
// One transaction under the deposit row lock: status flip plus a
// "Cancelación depósito" ingreso computed from the current locked balance,
// never from the original entry's SaldoActual. The egreso to reverse is the
// linked one or, while the link is still missing, the one found by reference.

func (s *depositoService) Cancelar(ctx context.Context, id, actor uuid.UUID, req dto.CancelarDepositoRequest) (*dto.OperacionDepositoResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, validacion("motivo es obligatorio")
	}
	var pedido *uuid.UUID
	if req.MovimientoID != nil && *req.MovimientoID != "" {
		parsed, err := parseUUID(*req.MovimientoID, "movimiento_id")
		if err != nil {
			return nil, err
		}
		pedido = &parsed
	}
	previo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "depósito no encontrado")
	}
	if previo.Estado == model.EstadoCancelado {
		return nil, conflicto("el depósito ya está cancelado")
	}

	now := ahora()
	var (
		dep     *model.DepositoBancario
		reverso *model.MovimientoCajaMayor
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		dep, err = s.repo.LockTx(tx, id)
		if err != nil {
			return siNoExiste(err, "depósito no encontrado")
		}
		if dep.Estado != model.EstadoActivo {
			return conflicto("el depósito ya está cancelado")
		}
		egreso, err := s.egresoDeTx(tx, dep)
		if err != nil {
			return err
		}
		if pedido != nil && (egreso == nil || egreso.ID != *pedido) {
			return validacion("el movimiento %s no es el egreso de este depósito", *pedido)
		}

		dep.Observacion = strings.TrimSpace(dep.Observacion + " | CANCELADO: " + motivo)
		n, err := s.repo.MarcarCanceladoTx(tx, id, actor, motivo, dep.Observacion, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("el depósito ya está cancelado")
		}
		if egreso == nil {
			return nil
		}
		reverso, err = s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
			Moneda:         egreso.Moneda,
			Monto:          egreso.Monto.Abs(),
			Tipo:           model.TipoCancelacionDeposito,
			UsuarioID:      actor,
			Concepto:       conceptoCancelacion(dep, motivo),
			ReferenciaTipo: model.RefDepositoBancario,
			ReferenciaID:   &dep.ID,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	dep.Estado = model.EstadoCancelado
	dep.MotivoCancelacion = &motivo
	dep.CanceladoPor = &actor
	dep.CanceladoAt = &now
	resp := &dto.OperacionDepositoResponse{Deposito: *depositoToResponse(dep)}
	if reverso != nil {
		resp.Movimiento = movimientoCajaMayorToResponse(reverso)
		resp.SaldoCaja = &reverso.SaldoActual
	}
	return resp, nil
}

// egresoDeTx returns the deposit's caja mayor egreso, nil when none was
// appended yet. dep must be locked.
func (s *depositoService) egresoDeTx(tx *gorm.DB, dep *model.DepositoBancario) (*model.MovimientoCajaMayor, error) {
	if dep.MovimientoID == nil {
		egreso, existe, err := s.cajaRepo.ExisteReferenciaTx(tx, model.RefDepositoBancario, dep.ID, model.TipoDepositoBancario, dep.Moneda)
		if err != nil || !existe {
			return nil, err
		}
		return egreso, nil
	}
	egreso, err := s.cajaRepo.FindMovimientoByIDTx(tx, *dep.MovimientoID)
	if err != nil {
		return nil, siNoExiste(err, "movimiento de caja mayor no encontrado")
	}
	if egreso.Tipo != model.TipoDepositoBancario || egreso.ReferenciaTipo != model.RefDepositoBancario ||
		egreso.ReferenciaID == nil || *egreso.ReferenciaID != dep.ID {
		return nil, conflicto("el movimiento vinculado %s no corresponde al depósito", egreso.ID)
	}
	return egreso, nil
}

// ── Actualizar ────────────────────────────────────────────────────────────────
// Only activo deposits; the amount never changes. The linked entry's concepto
// is refreshed so the ledger reads the current boleta and date.

func (s *depositoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarDepositoRequest) (*dto.DepositoResponse, error) {
	dep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "depósito no encontrado")
	}
	if dep.Estado != model.EstadoActivo {
		return nil, conflicto("solo se puede modificar un depósito activo")
	}

	campos := map[string]interface{}{}
	boletaCambia := false
	if req.NumeroBoleta != nil {
		boleta := strings.TrimSpace(*req.NumeroBoleta)
		if boleta == "" {
			return nil, validacion("numero_boleta no puede quedar vacío")
		}
		if boleta != dep.NumeroBoleta {
			boletaCambia = true
			dep.NumeroBoleta = boleta
			campos["numero_boleta"] = boleta
		}
	}
	if req.FechaDeposito != nil {
		fecha, err := parseFecha(*req.FechaDeposito, "fecha_deposito")
		if err != nil {
			return nil, err
		}
		dep.FechaDeposito = fecha
		campos["fecha_deposito"] = fecha
	}
	if req.Observacion != nil {
		dep.Observacion = strings.TrimSpace(*req.Observacion)
		campos["observacion"] = dep.Observacion
	}
	if req.ComprobanteURL != nil {
		dep.ComprobanteURL = req.ComprobanteURL
		campos["comprobante_url"] = *req.ComprobanteURL
	}
	if len(campos) == 0 {
		return depositoToResponse(dep), nil
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if boletaCambia {
			usada, err := s.repo.BoletaActivaTx(tx, dep.NumeroBoleta, &dep.ID)
			if err != nil {
				return err
			}
			if usada {
				return conflicto("ya existe un depósito activo con la boleta %s", dep.NumeroBoleta)
			}
		}
		n, err := s.repo.UpdateCamposTx(tx, id, campos)
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("solo se puede modificar un depósito activo")
		}
		if dep.MovimientoID != nil {
			return s.cajaRepo.UpdateConceptoTx(tx, *dep.MovimientoID, conceptoDeposito(dep))
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, conflicto("ya existe un depósito activo con la boleta %s", dep.NumeroBoleta)
		}
		return nil, txErr
	}
	return s.Obtener(ctx, id)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *depositoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.DepositoResponse, error) {
	dep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "depósito no encontrado")
	}
	return depositoToResponse(dep), nil
}

func (s *depositoService) Listar(ctx context.Context, filter dto.DepositoFilter) (*dto.DepositoListResponse, error) {
	deps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.DepositoResponse, 0, len(deps))
	for i := range deps {
		data = append(data, *depositoToResponse(&deps[i]))
	}
	return &dto.DepositoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Retry support ─────────────────────────────────────────────────────────────

func (s *depositoService) VincularMovimientoPendiente(ctx context.Context, id uuid.UUID) error {
	dep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return siNoExiste(err, "depósito no encontrado")
	}
	if dep.MovimientoID != nil {
		return nil
	}
	_, err = s.completarEgreso(ctx, id)
	return err
}

// completarEgreso appends and links the deposit's egreso in one transaction
// under the deposit row lock, so it cannot interleave with Cancelar. Returns
// the egreso when this call linked it.
func (s *depositoService) completarEgreso(ctx context.Context, id uuid.UUID) (*model.MovimientoCajaMayor, error) {
	var egreso *model.MovimientoCajaMayor
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		dep, err := s.repo.LockTx(tx, id)
		if err != nil {
			return siNoExiste(err, "depósito no encontrado")
		}
		if dep.MovimientoID != nil {
			return nil
		}
		if _, err := s.cajaRepo.LockSaldoTx(tx, dep.Moneda); err != nil {
			return err
		}
		existente, err := s.egresoDeTx(tx, dep)
		if err != nil {
			return err
		}
		if dep.Estado == model.EstadoCancelado {
			if existente != nil {
				return s.revertirHuerfanoTx(tx, dep, existente)
			}
			return nil
		}

		if existente == nil {
			existente, err = s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
				Moneda:         dep.Moneda,
				Monto:          dep.Monto,
				Tipo:           model.TipoDepositoBancario,
				UsuarioID:      dep.UsuarioID,
				Concepto:       conceptoDeposito(dep),
				ReferenciaTipo: model.RefDepositoBancario,
				ReferenciaID:   &dep.ID,
			})
			if err != nil {
				return err
			}
		}
		n, err := s.repo.VincularMovimientoTx(tx, id, existente.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return conflicto("el depósito cambió mientras se vinculaba su egreso")
		}
		egreso = existente
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another completer committed the same entry first
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return egreso, nil
}

// revertirHuerfanoTx offsets an egreso left unlinked on a cancelled deposit.
func (s *depositoService) revertirHuerfanoTx(tx *gorm.DB, dep *model.DepositoBancario, egreso *model.MovimientoCajaMayor) error {
	_, existe, err := s.cajaRepo.ExisteReferenciaTx(tx, model.RefDepositoBancario, dep.ID, model.TipoCancelacionDeposito, dep.Moneda)
	if err != nil || existe {
		return err
	}
	motivo := "reverso automático"
	if dep.MotivoCancelacion != nil {
		motivo = *dep.MotivoCancelacion
	}
	actor := dep.UsuarioID
	if dep.CanceladoPor != nil {
		actor = *dep.CanceladoPor
	}
	_, err = s.cajaMayor.RegistrarMovimientoTx(tx, RegistrarMovimientoRequest{
		Moneda:         egreso.Moneda,
		Monto:          egreso.Monto.Abs(),
		Tipo:           model.TipoCancelacionDeposito,
		UsuarioID:      actor,
		Concepto:       conceptoCancelacion(dep, motivo),
		ReferenciaTipo: model.RefDepositoBancario,
		ReferenciaID:   &dep.ID,
	})
	return err
}

func (s *depositoService) PendientesDeVinculo(ctx context.Context, antiguedad time.Duration, limit int) ([]uuid.UUID, error) {
	deps, err := s.repo.ListSinMovimiento(ctx, ahora().Add(-antiguedad), limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(deps))
	for _, d := range deps {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ── Bancos y cuentas ──────────────────────────────────────────────────────────

func (s *depositoService) CrearBanco(ctx context.Context, req dto.CrearBancoRequest) (*dto.BancoResponse, error) {
	b := &model.Banco{Nombre: strings.TrimSpace(req.Nombre), Activo: true}
	if b.Nombre == "" {
		return nil, validacion("nombre es obligatorio")
	}
	if err := s.bancos.CreateBanco(ctx, b); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflicto("ya existe el banco %s", b.Nombre)
		}
		return nil, err
	}
	return bancoToResponse(b), nil
}

func (s *depositoService) ListarBancos(ctx context.Context) ([]dto.BancoResponse, error) {
	bancos, err := s.bancos.ListBancos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BancoResponse, 0, len(bancos))
	for i := range bancos {
		out = append(out, *bancoToResponse(&bancos[i]))
	}
	return out, nil
}

func (s *depositoService) CrearCuenta(ctx context.Context, req dto.CrearCuentaBancariaRequest) (*dto.CuentaBancariaResponse, error) {
	bancoID, err := parseUUID(req.BancoID, "banco_id")
	if err != nil {
		return nil, err
	}
	moneda, err := parseMoneda(req.Moneda)
	if err != nil {
		return nil, err
	}
	banco, err := s.bancos.FindBancoByID(ctx, bancoID)
	if err != nil {
		return nil, siNoExiste(err, "banco no encontrado")
	}
	c := &model.CuentaBancaria{
		BancoID:      bancoID,
		NumeroCuenta: strings.TrimSpace(req.NumeroCuenta),
		Moneda:       moneda,
		Titular:      strings.TrimSpace(req.Titular),
		Activo:       true,
	}
	if err := s.bancos.CreateCuenta(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflicto("la cuenta %s ya existe en %s", c.NumeroCuenta, banco.Nombre)
		}
		return nil, err
	}
	c.Banco = banco
	return cuentaToResponse(c), nil
}

func (s *depositoService) ListarCuentas(ctx context.Context, bancoID *uuid.UUID) ([]dto.CuentaBancariaResponse, error) {
	cuentas, err := s.bancos.ListCuentas(ctx, bancoID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CuentaBancariaResponse, 0, len(cuentas))
	for i := range cuentas {
		out = append(out, *cuentaToResponse(&cuentas[i]))
	}
	return out, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func datosCuenta(dep *model.DepositoBancario) (banco, cuenta string) {
	if dep.CuentaBancaria == nil {
		return "", ""
	}
	cuenta = dep.CuentaBancaria.NumeroCuenta
	if dep.CuentaBancaria.Banco != nil {
		banco = dep.CuentaBancaria.Banco.Nombre
	}
	return banco, cuenta
}

func conceptoDeposito(dep *model.DepositoBancario) string {
	banco, cuenta := datosCuenta(dep)
	return fmt.Sprintf("Depósito bancario %s Cta. %s - Boleta %s del %s",
		banco, cuenta, dep.NumeroBoleta, fmtFecha(dep.FechaDeposito))
}

func conceptoCancelacion(dep *model.DepositoBancario, motivo string) string {
	banco, cuenta := datosCuenta(dep)
	return fmt.Sprintf("Cancelación depósito %s Cta. %s - Boleta %s del %s: %s",
		banco, cuenta, dep.NumeroBoleta, fmtFecha(dep.FechaDeposito), motivo)
}

func depositoToResponse(d *model.DepositoBancario) *dto.DepositoResponse {
	banco, cuenta := datosCuenta(d)
	return &dto.DepositoResponse{
		ID:                d.ID.String(),
		CuentaBancariaID:  d.CuentaBancariaID.String(),
		Banco:             banco,
		NumeroCuenta:      cuenta,
		NumeroBoleta:      d.NumeroBoleta,
		Monto:             d.Monto,
		Moneda:            string(d.Moneda),
		FechaDeposito:     fmtFecha(d.FechaDeposito),
		Observacion:       d.Observacion,
		ComprobanteURL:    d.ComprobanteURL,
		Estado:            d.Estado,
		MotivoCancelacion: d.MotivoCancelacion,
		CanceladoAt:       fmtFechaHoraPtr(d.CanceladoAt),
		MovimientoID:      uuidPtrString(d.MovimientoID),
		CreatedAt:         fmtFechaHora(d.CreatedAt),
	}
}

func bancoToResponse(b *model.Banco) *dto.BancoResponse {
	return &dto.BancoResponse{ID: b.ID.String(), Nombre: b.Nombre, Activo: b.Activo}
}

func cuentaToResponse(c *model.CuentaBancaria) *dto.CuentaBancariaResponse {
	resp := &dto.CuentaBancariaResponse{
		ID:           c.ID.String(),
		BancoID:      c.BancoID.String(),
		NumeroCuenta: c.NumeroCuenta,
		Moneda:       string(c.Moneda),
		Titular:      c.Titular,
		Activo:       c.Activo,
	}
	if c.Banco != nil {
		resp.Banco = c.Banco.Nombre
	}
	return resp
}
