package repository

import (
	"context"
	"time"

	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RRHHRepository reads the four payroll sources of a month and persists its
// summary. Readers take a db handle so the same query serves the live view
// (repo.DB()) and the finalization transaction.
type RRHHRepository interface {
	CreateMovimiento(ctx context.Context, m *model.MovimientoRRHH) error
	FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoRRHH, error)
	AnularMovimiento(ctx context.Context, id uuid.UUID) (int64, error)
	CreateVale(ctx context.Context, v *model.Vale) error
	FindValeByID(ctx context.Context, id uuid.UUID) (*model.Vale, error)
	AnularVale(ctx context.Context, id uuid.UUID) (int64, error)
	CreateSueldo(ctx context.Context, s *model.Sueldo) error

	MovimientosPeriodo(db *gorm.DB, personaID uuid.UUID, mes, anio int) ([]model.MovimientoRRHH, error)
	ValesVencen(db *gorm.DB, personaID uuid.UUID, desde, hasta time.Time) ([]model.Vale, error)
	// SueldoVigente returns the latest salary effective before hasta, nil when none.
	SueldoVigente(db *gorm.DB, personaID uuid.UUID, hasta time.Time) (*model.Sueldo, error)

	FindResumen(db *gorm.DB, personaID uuid.UUID, mes, anio int) (*model.ResumenMesRRHH, error)
	FindResumenByID(ctx context.Context, id uuid.UUID) (*model.ResumenMesRRHH, error)
	// LockResumenTx returns the period row under FOR UPDATE, creating it open when absent.
	LockResumenTx(tx *gorm.DB, personaID uuid.UUID, mes, anio int) (*model.ResumenMesRRHH, error)
	SaveResumenTx(tx *gorm.DB, r *model.ResumenMesRRHH) error
	// ReabrirTx flips a finalized row back to open; 0 rows means it was not finalized.
	ReabrirTx(tx *gorm.DB, id, actor uuid.UUID, at time.Time) (int64, error)
	DeleteFinalizadosTx(tx *gorm.DB, resumenID uuid.UUID) error
	CreateFinalizadosTx(tx *gorm.DB, rows []model.MovimientoRRHHFinalizado) error
	ListFinalizados(ctx context.Context, resumenID uuid.UUID) ([]model.MovimientoRRHHFinalizado, error)

	DB() *gorm.DB
}

type rrhhRepo struct{ db *gorm.DB }

func NewRRHHRepository(db *gorm.DB) RRHHRepository { return &rrhhRepo{db: db} }

func (r *rrhhRepo) DB() *gorm.DB { return r.db }

// ── Supporting records ───────────────────────────────────────────────────────

func (r *rrhhRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoRRHH) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *rrhhRepo) FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoRRHH, error) {
	var m model.MovimientoRRHH
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *rrhhRepo) AnularMovimiento(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.MovimientoRRHH{}).
		Where("id = ? AND anulado = ?", id, false).
		Update("anulado", true)
	return res.RowsAffected, res.Error
}

func (r *rrhhRepo) CreateVale(ctx context.Context, v *model.Vale) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *rrhhRepo) FindValeByID(ctx context.Context, id uuid.UUID) (*model.Vale, error) {
	var v model.Vale
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	return &v, err
}

func (r *rrhhRepo) AnularVale(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Vale{}).
		Where("id = ? AND anulado = ?", id, false).
		Update("anulado", true)
	return res.RowsAffected, res.Error
}

func (r *rrhhRepo) CreateSueldo(ctx context.Context, s *model.Sueldo) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ── Period sources ───────────────────────────────────────────────────────────

func (r *rrhhRepo) MovimientosPeriodo(db *gorm.DB, personaID uuid.UUID, mes, anio int) ([]model.MovimientoRRHH, error) {
	var movs []model.MovimientoRRHH
	err := db.Where("persona_id = ? AND mes = ? AND anio = ? AND anulado = ?", personaID, mes, anio, false).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *rrhhRepo) ValesVencen(db *gorm.DB, personaID uuid.UUID, desde, hasta time.Time) ([]model.Vale, error) {
	var vales []model.Vale
	err := db.Where("persona_id = ? AND anulado = ? AND fecha_vencimiento >= ? AND fecha_vencimiento < ?",
		personaID, false, desde, hasta).
		Order("fecha_vencimiento ASC").
		Find(&vales).Error
	return vales, err
}

func (r *rrhhRepo) SueldoVigente(db *gorm.DB, personaID uuid.UUID, hasta time.Time) (*model.Sueldo, error) {
	var sueldos []model.Sueldo
	err := db.Where("persona_id = ? AND vigente_desde < ?", personaID, hasta).
		Order("vigente_desde DESC, created_at DESC").
		Limit(1).
		Find(&sueldos).Error
	if err != nil || len(sueldos) == 0 {
		return nil, err
	}
	return &sueldos[0], nil
}

// ── Summary ──────────────────────────────────────────────────────────────────

func (r *rrhhRepo) FindResumen(db *gorm.DB, personaID uuid.UUID, mes, anio int) (*model.ResumenMesRRHH, error) {
	var res model.ResumenMesRRHH
	err := db.Where("persona_id = ? AND mes = ? AND anio = ?", personaID, mes, anio).First(&res).Error
	return &res, err
}

func (r *rrhhRepo) FindResumenByID(ctx context.Context, id uuid.UUID) (*model.ResumenMesRRHH, error) {
	var res model.ResumenMesRRHH
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	return &res, err
}

func (r *rrhhRepo) LockResumenTx(tx *gorm.DB, personaID uuid.UUID, mes, anio int) (*model.ResumenMesRRHH, error) {
	seed := model.ResumenMesRRHH{PersonaID: personaID, Mes: mes, Anio: anio}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var res model.ResumenMesRRHH
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("persona_id = ? AND mes = ? AND anio = ?", personaID, mes, anio).
		First(&res).Error
	return &res, err
}

func (r *rrhhRepo) SaveResumenTx(tx *gorm.DB, res *model.ResumenMesRRHH) error {
	return tx.Save(res).Error
}

func (r *rrhhRepo) ReabrirTx(tx *gorm.DB, id, actor uuid.UUID, at time.Time) (int64, error) {
	result := tx.Model(&model.ResumenMesRRHH{}).
		Where("id = ? AND finalizado = ?", id, true).
		Updates(map[string]interface{}{
			"finalizado":        false,
			"fecha_reapertura":  at,
			"usuario_reabre_id": actor,
			"updated_at":        at,
		})
	return result.RowsAffected, result.Error
}

func (r *rrhhRepo) DeleteFinalizadosTx(tx *gorm.DB, resumenID uuid.UUID) error {
	return tx.Where("resumen_id = ?", resumenID).Delete(&model.MovimientoRRHHFinalizado{}).Error
}

func (r *rrhhRepo) CreateFinalizadosTx(tx *gorm.DB, rows []model.MovimientoRRHHFinalizado) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func (r *rrhhRepo) ListFinalizados(ctx context.Context, resumenID uuid.UUID) ([]model.MovimientoRRHHFinalizado, error) {
	var rows []model.MovimientoRRHHFinalizado
	err := r.db.WithContext(ctx).Where("resumen_id = ?", resumenID).Order("orden ASC").Find(&rows).Error
	return rows, err
}
