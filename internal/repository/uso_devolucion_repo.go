package repository

import (
	"context"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsoDevolucionRepository interface {
	CreateTx(tx *gorm.DB, u *model.UsoDevolucion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.UsoDevolucion, error)
	// MarcarAnuladoTx flips an activo row to anulado; 0 rows affected means
	// someone else already voided it.
	MarcarAnuladoTx(tx *gorm.DB, id, actor uuid.UUID, motivo string, at time.Time) (int64, error)
	List(ctx context.Context, filter dto.UsoDevolucionFilter) ([]model.UsoDevolucion, int64, error)
	// ListAnuladasSinAsiento returns voided operations, older than the cutoff,
	// with at least one non-zero currency lacking its caja mayor reversal.
	ListAnuladasSinAsiento(ctx context.Context, anuladasAntesDe time.Time, limit int) ([]uuid.UUID, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type usoDevolucionRepo struct{ db *gorm.DB }

func NewUsoDevolucionRepository(db *gorm.DB) UsoDevolucionRepository {
	return &usoDevolucionRepo{db: db}
}

func (r *usoDevolucionRepo) DB() *gorm.DB { return r.db }

func (r *usoDevolucionRepo) CreateTx(tx *gorm.DB, u *model.UsoDevolucion) error {
	return tx.Create(u).Error
}

func (r *usoDevolucionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.UsoDevolucion, error) {
	var u model.UsoDevolucion
	err := r.db.WithContext(ctx).Preload("Persona").Where("id = ?", id).First(&u).Error
	return &u, err
}

func (r *usoDevolucionRepo) MarcarAnuladoTx(tx *gorm.DB, id, actor uuid.UUID, motivo string, at time.Time) (int64, error) {
	res := tx.Model(&model.UsoDevolucion{}).
		Where("id = ? AND estado = ?", id, model.EstadoActivo).
		Updates(map[string]interface{}{
			"estado":           model.EstadoAnulado,
			"motivo_anulacion": motivo,
			"anulado_por":      actor,
			"anulado_at":       at,
		})
	return res.RowsAffected, res.Error
}

func (r *usoDevolucionRepo) List(ctx context.Context, filter dto.UsoDevolucionFilter) ([]model.UsoDevolucion, int64, error) {
	var ops []model.UsoDevolucion
	var total int64

	q := r.db.WithContext(ctx).Model(&model.UsoDevolucion{})
	if id, err := uuid.Parse(filter.PersonaID); err == nil {
		q = q.Where("persona_id = ?", id)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	q = rangoFechas(q, "created_at", filter.Desde, filter.Hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Persona").
		Order("created_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&ops).Error
	return ops, total, err
}

func (r *usoDevolucionRepo) ListAnuladasSinAsiento(ctx context.Context, anuladasAntesDe time.Time, limit int) ([]uuid.UUID, error) {
	sinAsiento := func(columna string, moneda model.Moneda) *gorm.DB {
		asiento := r.db.Model(&model.MovimientoCajaMayor{}).
			Select("1").
			Where("caja_mayor_movimientos.referencia_tipo = ? AND caja_mayor_movimientos.referencia_id = uso_devolucion.id", model.RefUsoDevolucion).
			Where("caja_mayor_movimientos.tipo IN ? AND caja_mayor_movimientos.moneda = ?",
				[]model.TipoCajaMayor{model.TipoAnulacionUso, model.TipoAnulacionDevolucion}, moneda)
		return r.db.Where(columna+" <> 0 AND NOT EXISTS (?)", asiento)
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.UsoDevolucion{}).
		Where("estado = ? AND anulado_at < ?", model.EstadoAnulado, anuladasAntesDe).
		Where(sinAsiento("monto_guaranies", model.PYG).
			Or(sinAsiento("monto_dolares", model.USD)).
			Or(sinAsiento("monto_reales", model.BRL))).
		Order("anulado_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
