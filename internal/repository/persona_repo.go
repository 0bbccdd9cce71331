package repository

import (
	"context"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersonaRepository owns personas and their per-currency balance snapshot.
type PersonaRepository interface {
	Create(ctx context.Context, p *model.Persona) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Persona, error)
	List(ctx context.Context, filter dto.PersonaFilter) ([]model.Persona, int64, error)
	Saldos(ctx context.Context, personaID uuid.UUID) ([]model.SaldoPersona, error)

	// AplicarDeltaTx adds delta to the (persona, moneda) balance under a row
	// lock, creating the row at zero first when absent. Returns the new snapshot.
	AplicarDeltaTx(tx *gorm.DB, personaID uuid.UUID, moneda model.Moneda, delta decimal.Decimal) (*model.SaldoPersona, error)

	DB() *gorm.DB
}

type personaRepo struct{ db *gorm.DB }

func NewPersonaRepository(db *gorm.DB) PersonaRepository { return &personaRepo{db: db} }

func (r *personaRepo) DB() *gorm.DB { return r.db }

func (r *personaRepo) Create(ctx context.Context, p *model.Persona) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *personaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Persona, error) {
	var p model.Persona
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *personaRepo) List(ctx context.Context, filter dto.PersonaFilter) ([]model.Persona, int64, error) {
	var personas []model.Persona
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Persona{}).Where("activo = ?", true)
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if filter.Buscar != "" {
		like := "%" + filter.Buscar + "%"
		q = q.Where("LOWER(nombre) LIKE LOWER(?) OR documento LIKE ?", like, like)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("nombre ASC").Offset(filter.Offset()).Limit(filter.Limit).Find(&personas).Error
	return personas, total, err
}

func (r *personaRepo) Saldos(ctx context.Context, personaID uuid.UUID) ([]model.SaldoPersona, error) {
	var saldos []model.SaldoPersona
	err := r.db.WithContext(ctx).Where("persona_id = ?", personaID).Order("moneda ASC").Find(&saldos).Error
	return saldos, err
}

func (r *personaRepo) AplicarDeltaTx(tx *gorm.DB, personaID uuid.UUID, moneda model.Moneda, delta decimal.Decimal) (*model.SaldoPersona, error) {
	seed := model.SaldoPersona{PersonaID: personaID, Moneda: moneda, Saldo: decimal.Zero}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var saldo model.SaldoPersona
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("persona_id = ? AND moneda = ?", personaID, moneda).
		First(&saldo).Error
	if err != nil {
		return nil, err
	}

	saldo.Saldo = saldo.Saldo.Add(delta)
	saldo.UpdatedAt = time.Now().UTC()
	err = tx.Model(&model.SaldoPersona{}).
		Where("id = ?", saldo.ID).
		Updates(map[string]interface{}{"saldo": saldo.Saldo, "updated_at": saldo.UpdatedAt}).Error
	return &saldo, err
}
