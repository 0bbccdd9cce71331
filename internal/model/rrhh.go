package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MovimientoRRHH is a manual payroll adjustment for a persona's month.
type MovimientoRRHH struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PersonaID uuid.UUID       `gorm:"type:uuid;not null;index:idx_mov_rrhh_periodo"`
	Mes       int             `gorm:"not null;index:idx_mov_rrhh_periodo"`
	Anio      int             `gorm:"not null;index:idx_mov_rrhh_periodo"`
	Tipo      string          `gorm:"type:varchar(40);not null"`
	EsIngreso bool            `gorm:"not null"`
	Moneda    Moneda          `gorm:"type:varchar(3);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Concepto  string          `gorm:"not null"`
	Anulado   bool            `gorm:"not null;default:false"`
	UsuarioID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

func (MovimientoRRHH) TableName() string { return "movimientos_rrhh" }

func (m *MovimientoRRHH) BeforeCreate(*gorm.DB) error { asignarID(&m.ID); return nil }

// Vale is a salary advance; it is discounted in the month it falls due.
type Vale struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PersonaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Moneda           Moneda          `gorm:"type:varchar(3);not null"`
	Monto            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FechaVencimiento time.Time       `gorm:"not null;index"`
	Concepto         string          `gorm:"not null"`
	Anulado          bool            `gorm:"not null;default:false"`
	UsuarioID        uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt        time.Time
}

func (v *Vale) BeforeCreate(*gorm.DB) error { asignarID(&v.ID); return nil }

// Sueldo is a salary level effective from VigenteDesde until superseded.
type Sueldo struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PersonaID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Moneda       Moneda          `gorm:"type:varchar(3);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VigenteDesde time.Time       `gorm:"not null"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

func (s *Sueldo) BeforeCreate(*gorm.DB) error { asignarID(&s.ID); return nil }

// ResumenMesRRHH is the per-persona monthly summary. While Finalizado is true
// its totals and frozen rows are authoritative; after a reopen the same row is
// reused by the next finalization.
type ResumenMesRRHH struct {
	ID                 uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	PersonaID          uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex:idx_resumen_periodo"`
	Mes                int                              `gorm:"not null;uniqueIndex:idx_resumen_periodo"`
	Anio               int                              `gorm:"not null;uniqueIndex:idx_resumen_periodo"`
	TotalGS            decimal.Decimal                  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalUSD           decimal.Decimal                  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalBRL           decimal.Decimal                  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalFinalGS       decimal.Decimal                  `gorm:"type:decimal(18,2);not null;default:0"`
	CotizacionesUsadas datatypes.JSONType[Cotizaciones] `gorm:"type:json"`
	Finalizado         bool                             `gorm:"not null;default:false"`
	FechaFinalizacion  *time.Time
	UsuarioFinalizaID  *uuid.UUID `gorm:"type:uuid"`
	FechaReapertura    *time.Time
	UsuarioReabreID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ResumenMesRRHH) TableName() string { return "resumenes_mes_rrhh" }

func (r *ResumenMesRRHH) BeforeCreate(*gorm.DB) error { asignarID(&r.ID); return nil }

// Origen values of a payroll line.
const (
	OrigenManual = "manual"
	OrigenVale   = "vale"
	OrigenSueldo = "sueldo"
	OrigenIPS    = "ips"
)

// MovimientoRRHHFinalizado is a frozen copy of one payroll line taken at
// finalization time. Monto is signed.
type MovimientoRRHHFinalizado struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ResumenID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PersonaID uuid.UUID       `gorm:"type:uuid;not null"`
	Mes       int             `gorm:"not null"`
	Anio      int             `gorm:"not null"`
	Origen    string          `gorm:"type:varchar(10);not null"`
	OrigenID  *uuid.UUID      `gorm:"type:uuid"`
	Tipo      string          `gorm:"type:varchar(40);not null"`
	Moneda    Moneda          `gorm:"type:varchar(3);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Concepto  string          `gorm:"not null"`
	Fecha     time.Time       `gorm:"not null"`
	// Orden keeps the display order: sueldo, manual, vales, IPS.
	Orden     int             `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (MovimientoRRHHFinalizado) TableName() string { return "movimientos_rrhh_finalizados" }

func (m *MovimientoRRHHFinalizado) BeforeCreate(*gorm.DB) error { asignarID(&m.ID); return nil }
