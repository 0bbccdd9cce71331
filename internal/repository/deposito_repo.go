package repository

import (
	"context"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DepositoRepository interface {
	CreateTx(tx *gorm.DB, d *model.DepositoBancario) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DepositoBancario, error)
	// LockTx reads the deposit under FOR UPDATE; cancellation and the caja
	// mayor link serialize on this row.
	LockTx(tx *gorm.DB, id uuid.UUID) (*model.DepositoBancario, error)
	// BoletaActivaTx reports whether an activo deposit other than excluir
	// already uses the boleta number.
	BoletaActivaTx(tx *gorm.DB, boleta string, excluir *uuid.UUID) (bool, error)
	UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) (int64, error)
	MarcarCanceladoTx(tx *gorm.DB, id, actor uuid.UUID, motivo, observacion string, at time.Time) (int64, error)
	// VincularMovimiento stores the caja mayor entry on an activo deposit that
	// has none yet; 0 rows affected means it was cancelled or already linked.
	VincularMovimientoTx(tx *gorm.DB, id, movimientoID uuid.UUID) (int64, error)
	ListSinMovimiento(ctx context.Context, creadosAntesDe time.Time, limit int) ([]model.DepositoBancario, error)
	List(ctx context.Context, filter dto.DepositoFilter) ([]model.DepositoBancario, int64, error)
	DB() *gorm.DB
}

type depositoRepo struct{ db *gorm.DB }

func NewDepositoRepository(db *gorm.DB) DepositoRepository { return &depositoRepo{db: db} }

func (r *depositoRepo) DB() *gorm.DB { return r.db }

func (r *depositoRepo) CreateTx(tx *gorm.DB, d *model.DepositoBancario) error {
	return tx.Create(d).Error
}

func (r *depositoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DepositoBancario, error) {
	var d model.DepositoBancario
	err := r.db.WithContext(ctx).Preload("CuentaBancaria.Banco").Where("id = ?", id).First(&d).Error
	return &d, err
}

func (r *depositoRepo) LockTx(tx *gorm.DB, id uuid.UUID) (*model.DepositoBancario, error) {
	var d model.DepositoBancario
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	// loaded apart so the lock stays on the deposit row only
	var cuenta model.CuentaBancaria
	if err := tx.Preload("Banco").Where("id = ?", d.CuentaBancariaID).First(&cuenta).Error; err != nil {
		return nil, err
	}
	d.CuentaBancaria = &cuenta
	return &d, nil
}

func (r *depositoRepo) BoletaActivaTx(tx *gorm.DB, boleta string, excluir *uuid.UUID) (bool, error) {
	var n int64
	q := tx.Model(&model.DepositoBancario{}).Where("numero_boleta = ? AND estado = ?", boleta, model.EstadoActivo)
	if excluir != nil {
		q = q.Where("id <> ?", *excluir)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *depositoRepo) UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) (int64, error) {
	campos["updated_at"] = time.Now().UTC()
	res := tx.Model(&model.DepositoBancario{}).
		Where("id = ? AND estado = ?", id, model.EstadoActivo).
		Updates(campos)
	return res.RowsAffected, res.Error
}

func (r *depositoRepo) MarcarCanceladoTx(tx *gorm.DB, id, actor uuid.UUID, motivo, observacion string, at time.Time) (int64, error) {
	res := tx.Model(&model.DepositoBancario{}).
		Where("id = ? AND estado = ?", id, model.EstadoActivo).
		Updates(map[string]interface{}{
			"estado":             model.EstadoCancelado,
			"motivo_cancelacion": motivo,
			"cancelado_por":      actor,
			"cancelado_at":       at,
			"observacion":        observacion,
			"updated_at":         at,
		})
	return res.RowsAffected, res.Error
}

func (r *depositoRepo) VincularMovimientoTx(tx *gorm.DB, id, movimientoID uuid.UUID) (int64, error) {
	res := tx.Model(&model.DepositoBancario{}).
		Where("id = ? AND estado = ? AND movimiento_id IS NULL", id, model.EstadoActivo).
		Updates(map[string]interface{}{"movimiento_id": movimientoID, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *depositoRepo) ListSinMovimiento(ctx context.Context, creadosAntesDe time.Time, limit int) ([]model.DepositoBancario, error) {
	var deps []model.DepositoBancario
	err := r.db.WithContext(ctx).
		Where("estado = ? AND movimiento_id IS NULL AND created_at < ?", model.EstadoActivo, creadosAntesDe).
		Order("created_at ASC").
		Limit(limit).
		Find(&deps).Error
	return deps, err
}

func (r *depositoRepo) List(ctx context.Context, filter dto.DepositoFilter) ([]model.DepositoBancario, int64, error) {
	var deps []model.DepositoBancario
	var total int64

	q := r.db.WithContext(ctx).Model(&model.DepositoBancario{})
	if id, err := uuid.Parse(filter.CuentaBancariaID); err == nil {
		q = q.Where("cuenta_bancaria_id = ?", id)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	q = rangoFechas(q, "fecha_deposito", filter.Desde, filter.Hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("CuentaBancaria.Banco").
		Order("fecha_deposito DESC, created_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&deps).Error
	return deps, total, err
}
