package repository

import (
	"context"
	"time"

	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SumasPorMetodo is keyed by currency, then payment method.
type SumasPorMetodo map[model.Moneda]map[string]decimal.Decimal

type CajaRepository interface {
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionAbiertaPorPDV(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error)
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	LockSesionTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	// CerrarSesionTx closes an abierta session; 0 rows affected means it was already closed.
	CerrarSesionTx(tx *gorm.DB, id uuid.UUID, clasificacion string, observaciones *string, at time.Time) (int64, error)
	CreateArqueosTx(tx *gorm.DB, arqueos []model.ArqueoCaja) error
	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	SumMovimientosByMetodo(db *gorm.DB, sesionCajaID uuid.UUID) (SumasPorMetodo, error)
	ListSesiones(ctx context.Context, offset, limit int) ([]model.SesionCaja, int64, error)
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaPorPDV(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Where("punto_de_venta = ? AND estado = 'abierta'", puntoDeVenta).First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND estado = 'abierta'", usuarioID).
		Order("opened_at DESC").
		First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Arqueos").Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cajaRepo) LockSesionTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cajaRepo) CerrarSesionTx(tx *gorm.DB, id uuid.UUID, clasificacion string, observaciones *string, at time.Time) (int64, error) {
	res := tx.Model(&model.SesionCaja{}).
		Where("id = ? AND estado = 'abierta'", id).
		Updates(map[string]interface{}{
			"estado":               "cerrada",
			"clasificacion_desvio": clasificacion,
			"observaciones":        observaciones,
			"closed_at":            at,
		})
	return res.RowsAffected, res.Error
}

func (r *cajaRepo) CreateArqueosTx(tx *gorm.DB, arqueos []model.ArqueoCaja) error {
	return tx.Create(&arqueos).Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("sesion_caja_id = ?", sesionCajaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumMovimientosByMetodo(db *gorm.DB, sesionCajaID uuid.UUID) (SumasPorMetodo, error) {
	var rows []struct {
		Moneda     model.Moneda
		MetodoPago string
		Total      decimal.Decimal
	}
	err := db.Model(&model.MovimientoCaja{}).
		Select("moneda, metodo_pago, SUM(monto) AS total").
		Where("sesion_caja_id = ?", sesionCajaID).
		Group("moneda, metodo_pago").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := SumasPorMetodo{}
	for _, m := range model.Monedas {
		sums[m] = map[string]decimal.Decimal{}
	}
	for _, row := range rows {
		if _, ok := sums[row.Moneda]; ok {
			sums[row.Moneda][row.MetodoPago] = row.Total
		}
	}
	return sums, nil
}

func (r *cajaRepo) ListSesiones(ctx context.Context, offset, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Arqueos").Order("opened_at DESC").Offset(offset).Limit(limit).Find(&sesiones).Error
	return sesiones, total, err
}
