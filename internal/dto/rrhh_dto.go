package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PeriodoRRHH struct {
	PersonaID string `json:"persona_id" validate:"required,uuid"`
	Mes       int    `json:"mes"        validate:"required,min=1,max=12"`
	Anio      int    `json:"anio"       validate:"required,min=2000,max=2100"`
}

type CrearMovimientoRRHHRequest struct {
	PeriodoRRHH
	Tipo      string          `json:"tipo"       validate:"required"`
	EsIngreso bool            `json:"es_ingreso"`
	Moneda    string          `json:"moneda"     validate:"required"`
	Monto     decimal.Decimal `json:"monto"      validate:"required,gt=0"`
	Concepto  string          `json:"concepto"   validate:"required,min=3"`
}

type CrearValeRequest struct {
	PersonaID        string          `json:"persona_id"        validate:"required,uuid"`
	Moneda           string          `json:"moneda"            validate:"required"`
	Monto            decimal.Decimal `json:"monto"             validate:"required,gt=0"`
	FechaVencimiento string          `json:"fecha_vencimiento" validate:"required,datetime=2006-01-02"`
	Concepto         string          `json:"concepto"          validate:"required,min=3"`
}

type RegistrarSueldoRequest struct {
	PersonaID    string          `json:"persona_id"    validate:"required,uuid"`
	Moneda       string          `json:"moneda"        validate:"required"`
	Monto        decimal.Decimal `json:"monto"         validate:"required,gt=0"`
	VigenteDesde string          `json:"vigente_desde" validate:"required,datetime=2006-01-02"`
}

// Cotizaciones are guaraníes per unit of each foreign currency.
type Cotizaciones struct {
	USD decimal.Decimal `json:"USD" validate:"gt=0"`
	BRL decimal.Decimal `json:"BRL" validate:"gt=0"`
}

type FinalizarMesRequest struct {
	PeriodoRRHH
	Cotizaciones Cotizaciones `json:"cotizaciones"`
}

type ReabrirMesRequest struct {
	PeriodoRRHH
}

// CotizacionesQuery is bound from GET /v1/rrhh/:persona_id/:anio/:mes; when
// both are present the live view also returns total_final_gs.
type CotizacionesQuery struct {
	USD string `form:"cotizacion_usd"`
	BRL string `form:"cotizacion_brl"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoRRHHResponse struct {
	ID        string          `json:"id"`
	PersonaID string          `json:"persona_id"`
	Mes       int             `json:"mes"`
	Anio      int             `json:"anio"`
	Tipo      string          `json:"tipo"`
	EsIngreso bool            `json:"es_ingreso"`
	Moneda    string          `json:"moneda"`
	Monto     decimal.Decimal `json:"monto"`
	Concepto  string          `json:"concepto"`
	Anulado   bool            `json:"anulado"`
}

type ValeResponse struct {
	ID               string          `json:"id"`
	PersonaID        string          `json:"persona_id"`
	Moneda           string          `json:"moneda"`
	Monto            decimal.Decimal `json:"monto"`
	FechaVencimiento string          `json:"fecha_vencimiento"`
	Concepto         string          `json:"concepto"`
	Anulado          bool            `json:"anulado"`
}

type SueldoResponse struct {
	ID           string          `json:"id"`
	PersonaID    string          `json:"persona_id"`
	Moneda       string          `json:"moneda"`
	Monto        decimal.Decimal `json:"monto"`
	VigenteDesde string          `json:"vigente_desde"`
}

// LineaRRHH is one signed line of a month summary.
type LineaRRHH struct {
	Origen   string          `json:"origen"` // manual | vale | sueldo | ips
	OrigenID *string         `json:"origen_id"`
	Tipo     string          `json:"tipo"`
	Moneda   string          `json:"moneda"`
	Monto    decimal.Decimal `json:"monto"`
	Concepto string          `json:"concepto"`
	Fecha    string          `json:"fecha"`
}

type ResumenRRHHResponse struct {
	PersonaID         string          `json:"persona_id"`
	PersonaNombre     string          `json:"persona_nombre"`
	Mes               int             `json:"mes"`
	Anio              int             `json:"anio"`
	Finalizado        bool            `json:"finalizado"`
	FechaFinalizacion *string         `json:"fecha_finalizacion"`
	FechaReapertura   *string         `json:"fecha_reapertura"`
	Movimientos       []LineaRRHH     `json:"movimientos"`
	TotalGS           decimal.Decimal `json:"total_gs"`
	TotalUSD          decimal.Decimal `json:"total_usd"`
	TotalBRL          decimal.Decimal `json:"total_brl"`
	// TotalFinalGS is nil on a live view requested without exchange rates.
	TotalFinalGS *decimal.Decimal `json:"total_final_gs"`
	Cotizaciones *Cotizaciones    `json:"cotizaciones"`
}
