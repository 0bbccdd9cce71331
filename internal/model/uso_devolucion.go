package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TipoUsoDevolucion string

const (
	Uso        TipoUsoDevolucion = "USO"
	Devolucion TipoUsoDevolucion = "DEVOLUCION"
)

func (t TipoUsoDevolucion) Valido() bool { return t == Uso || t == Devolucion }

const (
	EstadoActivo    = "activo"
	EstadoAnulado   = "anulado"
	EstadoCancelado = "cancelado"
)

// UsoDevolucion records cash lent to (USO) or returned by (DEVOLUCION) a
// persona, in up to three currencies at once.
type UsoDevolucion struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PersonaID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	Tipo            TipoUsoDevolucion `gorm:"type:varchar(12);not null"`
	MontoGuaranies  decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	MontoDolares    decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	MontoReales     decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Motivo          string            `gorm:"not null"`
	Estado          string            `gorm:"type:varchar(12);not null;default:'activo';index"`
	MotivoAnulacion *string
	AnuladoPor      *uuid.UUID `gorm:"type:uuid"`
	AnuladoAt       *time.Time
	UsuarioID       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time `gorm:"index"`

	Persona *Persona `gorm:"foreignKey:PersonaID"`
}

func (UsoDevolucion) TableName() string { return "uso_devolucion" }

func (u *UsoDevolucion) BeforeCreate(*gorm.DB) error { asignarID(&u.ID); return nil }

// Montos returns the non-zero amounts keyed by currency, in PYG, USD, BRL order.
func (u UsoDevolucion) Montos() []MontoMoneda {
	var out []MontoMoneda
	for _, mm := range []MontoMoneda{
		{PYG, u.MontoGuaranies},
		{USD, u.MontoDolares},
		{BRL, u.MontoReales},
	} {
		if !mm.Monto.IsZero() {
			out = append(out, mm)
		}
	}
	return out
}

// DeltaPersona is the signed effect on the persona's balance: a USO
// increases the debt, so it subtracts.
func (u UsoDevolucion) DeltaPersona(monto decimal.Decimal) decimal.Decimal {
	if u.Tipo == Uso {
		return monto.Neg()
	}
	return monto
}

type MontoMoneda struct {
	Moneda Moneda
	Monto  decimal.Decimal
}
