package repository

import (
	"context"
	"errors"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CajaMayorRepository is the data access contract of the main cash ledger.
// Every *Tx method must run inside the caller's transaction.
type CajaMayorRepository interface {
	// LockSaldoTx returns the currency snapshot row under FOR UPDATE,
	// inserting it at zero when it does not exist yet.
	LockSaldoTx(tx *gorm.DB, moneda model.Moneda) (*model.SaldoCajaMayor, error)
	UpdateSaldoTx(tx *gorm.DB, moneda model.Moneda, saldo decimal.Decimal) error
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCajaMayor) error
	FindMovimientoByIDTx(tx *gorm.DB, id uuid.UUID) (*model.MovimientoCajaMayor, error)
	UpdateConceptoTx(tx *gorm.DB, id uuid.UUID, concepto string) error
	// MarcarAnuladoTx flips Anulado on a non-voided row; returns rows affected.
	MarcarAnuladoTx(tx *gorm.DB, id uuid.UUID) (int64, error)

	// ExisteReferenciaTx reports whether an entry with the same reference, kind
	// and currency was already appended. Call it after LockSaldoTx so a
	// concurrent append of the same currency is visible.
	ExisteReferenciaTx(tx *gorm.DB, refTipo string, refID uuid.UUID, tipo model.TipoCajaMayor, moneda model.Moneda) (*model.MovimientoCajaMayor, bool, error)

	FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCajaMayor, error)
	// ExisteReferencia is ExisteReferenciaTx outside a transaction; only a hint.
	ExisteReferencia(ctx context.Context, refTipo string, refID uuid.UUID, tipo model.TipoCajaMayor, moneda model.Moneda) (*model.MovimientoCajaMayor, bool, error)
	List(ctx context.Context, filter dto.CajaMayorFilter) ([]model.MovimientoCajaMayor, int64, error)
	Saldos(ctx context.Context) ([]model.SaldoCajaMayor, error)

	DB() *gorm.DB
}

type cajaMayorRepo struct{ db *gorm.DB }

func NewCajaMayorRepository(db *gorm.DB) CajaMayorRepository { return &cajaMayorRepo{db: db} }

func (r *cajaMayorRepo) DB() *gorm.DB { return r.db }

func (r *cajaMayorRepo) LockSaldoTx(tx *gorm.DB, moneda model.Moneda) (*model.SaldoCajaMayor, error) {
	seed := model.SaldoCajaMayor{Moneda: moneda, Saldo: decimal.Zero}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var s model.SaldoCajaMayor
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("moneda = ?", moneda).First(&s).Error
	return &s, err
}

func (r *cajaMayorRepo) UpdateSaldoTx(tx *gorm.DB, moneda model.Moneda, saldo decimal.Decimal) error {
	return tx.Model(&model.SaldoCajaMayor{}).
		Where("moneda = ?", moneda).
		Updates(map[string]interface{}{"saldo": saldo, "updated_at": time.Now().UTC()}).Error
}

func (r *cajaMayorRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCajaMayor) error {
	return tx.Create(m).Error
}

func (r *cajaMayorRepo) FindMovimientoByIDTx(tx *gorm.DB, id uuid.UUID) (*model.MovimientoCajaMayor, error) {
	var m model.MovimientoCajaMayor
	err := tx.Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *cajaMayorRepo) UpdateConceptoTx(tx *gorm.DB, id uuid.UUID, concepto string) error {
	return tx.Model(&model.MovimientoCajaMayor{}).Where("id = ?", id).Update("concepto", concepto).Error
}

func (r *cajaMayorRepo) MarcarAnuladoTx(tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := tx.Model(&model.MovimientoCajaMayor{}).
		Where("id = ? AND anulado = ?", id, false).
		Update("anulado", true)
	return res.RowsAffected, res.Error
}

func (r *cajaMayorRepo) FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCajaMayor, error) {
	return r.FindMovimientoByIDTx(r.db.WithContext(ctx), id)
}

func (r *cajaMayorRepo) ExisteReferencia(ctx context.Context, refTipo string, refID uuid.UUID, tipo model.TipoCajaMayor, moneda model.Moneda) (*model.MovimientoCajaMayor, bool, error) {
	return r.ExisteReferenciaTx(r.db.WithContext(ctx), refTipo, refID, tipo, moneda)
}

func (r *cajaMayorRepo) ExisteReferenciaTx(tx *gorm.DB, refTipo string, refID uuid.UUID, tipo model.TipoCajaMayor, moneda model.Moneda) (*model.MovimientoCajaMayor, bool, error) {
	var m model.MovimientoCajaMayor
	err := tx.
		Where("referencia_tipo = ? AND referencia_id = ? AND tipo = ? AND moneda = ?", refTipo, refID, tipo, moneda).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (r *cajaMayorRepo) List(ctx context.Context, filter dto.CajaMayorFilter) ([]model.MovimientoCajaMayor, int64, error) {
	var movs []model.MovimientoCajaMayor
	var total int64

	q := r.db.WithContext(ctx).Model(&model.MovimientoCajaMayor{})
	if filter.Moneda != "" {
		if m, err := model.ParseMoneda(filter.Moneda); err == nil {
			q = q.Where("moneda = ?", m)
		}
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	q = rangoFechas(q, "created_at", filter.Desde, filter.Hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset(filter.Offset()).Limit(filter.Limit).Find(&movs).Error
	return movs, total, err
}

func (r *cajaMayorRepo) Saldos(ctx context.Context) ([]model.SaldoCajaMayor, error) {
	var saldos []model.SaldoCajaMayor
	err := r.db.WithContext(ctx).Order("moneda ASC").Find(&saldos).Error
	return saldos, err
}

// rangoFechas applies an inclusive [desde, hasta] day range on col.
// Unparseable bounds are ignored.
func rangoFechas(q *gorm.DB, col, desde, hasta string) *gorm.DB {
	if t, err := time.Parse(dto.FechaLayout, desde); err == nil {
		q = q.Where(col+" >= ?", t.UTC())
	}
	if t, err := time.Parse(dto.FechaLayout, hasta); err == nil {
		q = q.Where(col+" < ?", t.UTC().AddDate(0, 0, 1))
	}
	return q
}
