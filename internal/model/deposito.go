package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Banco struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"uniqueIndex;not null"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (b *Banco) BeforeCreate(*gorm.DB) error { asignarID(&b.ID); return nil }

// CuentaBancaria belongs to a Banco and is denominated in exactly one currency.
type CuentaBancaria struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	BancoID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cuenta_banco_numero"`
	NumeroCuenta string    `gorm:"not null;uniqueIndex:idx_cuenta_banco_numero"`
	Moneda       Moneda    `gorm:"type:varchar(3);not null"`
	Titular      string    `gorm:"not null"`
	Activo       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time

	Banco *Banco `gorm:"foreignKey:BancoID"`
}

func (CuentaBancaria) TableName() string { return "cuentas_bancarias" }

func (c *CuentaBancaria) BeforeCreate(*gorm.DB) error { asignarID(&c.ID); return nil }

// DepositoBancario moves cash from the main register to a bank account.
// Estado is authoritative; Observacion only carries a human-readable trail.
// NumeroBoleta is unique among activo deposits (partial index, see infra.RunMigrations).
type DepositoBancario struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CuentaBancariaID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	NumeroBoleta      string          `gorm:"type:varchar(50);not null;index"`
	Monto             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Moneda            Moneda          `gorm:"type:varchar(3);not null"`
	FechaDeposito     time.Time       `gorm:"not null;index"`
	Observacion       string
	ComprobanteURL    *string
	Estado            string `gorm:"type:varchar(12);not null;default:'activo';index"`
	MotivoCancelacion *string
	CanceladoPor      *uuid.UUID `gorm:"type:uuid"`
	CanceladoAt       *time.Time
	// MovimientoID is the caja mayor egreso, nil until the best-effort append lands.
	MovimientoID *uuid.UUID `gorm:"type:uuid"`
	UsuarioID    uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	CuentaBancaria *CuentaBancaria `gorm:"foreignKey:CuentaBancariaID"`
}

func (DepositoBancario) TableName() string { return "depositos_bancarios" }

func (d *DepositoBancario) BeforeCreate(*gorm.DB) error { asignarID(&d.ID); return nil }
