package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SesionCaja represents the lifecycle of a cashier session.
// Estado: "abierta" | "cerrada"
type SesionCaja struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PuntoDeVenta   int             `gorm:"not null;index"`
	UsuarioID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontoInicialGS decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MontoInicialUS decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MontoInicialRS decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Estado         string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	// ClasificacionDesvio: "normal" | "advertencia" | "critico", worst currency wins
	ClasificacionDesvio *string `gorm:"type:varchar(20)"`
	Observaciones       *string
	OpenedAt            time.Time `gorm:"autoCreateTime"`
	ClosedAt            *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
	Arqueos     []ArqueoCaja     `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

func (s *SesionCaja) BeforeCreate(*gorm.DB) error { asignarID(&s.ID); return nil }

// MontoInicial returns the opening float for one currency.
func (s SesionCaja) MontoInicial(m Moneda) decimal.Decimal {
	switch m {
	case USD:
		return s.MontoInicialUS
	case BRL:
		return s.MontoInicialRS
	default:
		return s.MontoInicialGS
	}
}

// MovimientoCaja is an immutable event in the cashier ledger.
// Tipo: "venta" | "ingreso_manual" | "egreso_manual"
// MetodoPago: "efectivo" | "pos" | "transferencia"
// Egresos are stored negative.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	MetodoPago   string          `gorm:"type:varchar(20);not null"`
	Moneda       Moneda          `gorm:"type:varchar(3);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Descripcion  string          `gorm:"not null"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

func (m *MovimientoCaja) BeforeCreate(*gorm.DB) error { asignarID(&m.ID); return nil }

// ArqueoCaja is the closing count of one currency of a session.
type ArqueoCaja struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SesionCajaID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_arqueo_sesion_moneda"`
	Moneda                 Moneda          `gorm:"type:varchar(3);not null;uniqueIndex:idx_arqueo_sesion_moneda"`
	EsperadoEfectivo       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EsperadoPOS            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EsperadoTransferencia  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DeclaradoEfectivo      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DeclaradoPOS           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DeclaradoTransferencia decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Desvio                 decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DesvioPct              decimal.Decimal `gorm:"type:decimal(7,2);not null"`
	Clasificacion          string          `gorm:"type:varchar(20);not null"`
	// MovimientoCajaMayorID is the "Cierre de caja" ingreso for the declared cash.
	MovimientoCajaMayorID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time
}

func (ArqueoCaja) TableName() string { return "arqueos_caja" }

func (a *ArqueoCaja) BeforeCreate(*gorm.DB) error { asignarID(&a.ID); return nil }
