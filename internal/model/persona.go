package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Persona is anyone the business lends cash to or pays: employees and clients.
// Tipo: "funcionario" | "cliente"
type Persona struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"not null;index"`
	Documento string    `gorm:"uniqueIndex;not null"`
	Tipo      string    `gorm:"type:varchar(20);not null"`
	Email     *string
	// AsociadoIPS marks employees enrolled in social security; their closed
	// months carry the IPS deduction.
	AsociadoIPS bool `gorm:"not null;default:false"`
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Persona) BeforeCreate(*gorm.DB) error { asignarID(&p.ID); return nil }

// SaldoPersona is the running balance of a persona in one currency.
// It is created lazily on the first uso/devolución and mutated in place.
type SaldoPersona struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PersonaID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_saldo_persona_moneda"`
	Moneda    Moneda          `gorm:"type:varchar(3);not null;uniqueIndex:idx_saldo_persona_moneda"`
	Saldo     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UpdatedAt time.Time
}

func (SaldoPersona) TableName() string { return "saldo_persona" }

func (s *SaldoPersona) BeforeCreate(*gorm.DB) error { asignarID(&s.ID); return nil }

func asignarID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
