package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TipoCajaMayor is the closed set of movement kinds in the main cash ledger.
type TipoCajaMayor string

const (
	TipoUso                 TipoCajaMayor = "Uso"
	TipoDevolucion          TipoCajaMayor = "Devolución"
	TipoAnulacionUso        TipoCajaMayor = "Anulación uso"
	TipoAnulacionDevolucion TipoCajaMayor = "Anulación devolución"
	TipoDepositoBancario    TipoCajaMayor = "Depósito Bancario"
	TipoCancelacionDeposito TipoCajaMayor = "Cancelación depósito"
	TipoIngresoManual       TipoCajaMayor = "Ingreso manual"
	TipoEgresoManual        TipoCajaMayor = "Egreso manual"
	TipoCierreCaja          TipoCajaMayor = "Cierre de caja"
)

var esIngresoPorTipo = map[TipoCajaMayor]bool{
	TipoUso:                 true,
	TipoDevolucion:          false,
	TipoAnulacionUso:        false,
	TipoAnulacionDevolucion: true,
	TipoDepositoBancario:    false,
	TipoCancelacionDeposito: true,
	TipoIngresoManual:       true,
	TipoEgresoManual:        false,
	TipoCierreCaja:          true,
}

// Valido reports whether t is a known movement kind.
func (t TipoCajaMayor) Valido() bool {
	_, ok := esIngresoPorTipo[t]
	return ok
}

// EsIngreso reports the direction of the movement. A lend to a persona (Uso)
// brings cash back into the register, so it is an inflow.
func (t TipoCajaMayor) EsIngreso() bool { return esIngresoPorTipo[t] }

// ReferenciaTipo values for MovimientoCajaMayor.
const (
	RefUsoDevolucion    = "uso_devolucion"
	RefDepositoBancario = "deposito_bancario"
	RefSesionCaja       = "sesion_caja"
	RefManual           = "manual"
)

// MovimientoCajaMayor is an immutable row of the main cash ledger.
// Monto is unsigned; EsIngreso gives the direction. SaldoAnterior/SaldoActual
// record the per-currency running balance around this entry.
type MovimientoCajaMayor struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Tipo           TipoCajaMayor   `gorm:"type:varchar(40);not null;index"`
	EsIngreso      bool            `gorm:"not null"`
	Moneda         Moneda          `gorm:"type:varchar(3);not null;index"`
	Monto          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SaldoAnterior  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SaldoActual    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Concepto       string          `gorm:"not null"`
	ReferenciaTipo string          `gorm:"type:varchar(30);not null;index:idx_caja_mayor_ref"`
	ReferenciaID   *uuid.UUID      `gorm:"type:uuid;index:idx_caja_mayor_ref"`
	UsuarioID      uuid.UUID       `gorm:"type:uuid;not null"`
	Anulado        bool            `gorm:"not null;default:false"`
	CreatedAt      time.Time       `gorm:"index"`
}

func (MovimientoCajaMayor) TableName() string { return "caja_mayor_movimientos" }

func (m *MovimientoCajaMayor) BeforeCreate(*gorm.DB) error { asignarID(&m.ID); return nil }

// Firmado returns the amount with the ledger sign applied.
func (m MovimientoCajaMayor) Firmado() decimal.Decimal {
	if m.EsIngreso {
		return m.Monto
	}
	return m.Monto.Neg()
}

// SaldoCajaMayor is the per-currency snapshot row, locked during every append.
type SaldoCajaMayor struct {
	Moneda    Moneda          `gorm:"type:varchar(3);primaryKey"`
	Saldo     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UpdatedAt time.Time
}

func (SaldoCajaMayor) TableName() string { return "caja_mayor_saldos" }
