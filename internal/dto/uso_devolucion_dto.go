package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearUsoDevolucionRequest carries up to three amounts; at least one must be
// non-zero. Zero-valued currencies are ignored.
type CrearUsoDevolucionRequest struct {
	PersonaID      string          `json:"persona_id"      validate:"required,uuid"`
	Tipo           string          `json:"tipo"            validate:"required"`
	MontoGuaranies decimal.Decimal `json:"monto_guaranies" validate:"min=0"`
	MontoDolares   decimal.Decimal `json:"monto_dolares"   validate:"min=0"`
	MontoReales    decimal.Decimal `json:"monto_reales"    validate:"min=0"`
	Motivo         string          `json:"motivo"          validate:"required,min=3"`
}

type AnularRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// UsoDevolucionFilter is bound from query string of GET /v1/uso-devolucion.
type UsoDevolucionFilter struct {
	PersonaID string `form:"persona_id"`
	Tipo      string `form:"tipo"`
	Estado    string `form:"estado"` // activo | anulado | "" = all
	Desde     string `form:"desde"`
	Hasta     string `form:"hasta"`
	Paginacion
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UsoDevolucionResponse struct {
	ID              string          `json:"id"`
	PersonaID       string          `json:"persona_id"`
	PersonaNombre   string          `json:"persona_nombre,omitempty"`
	Tipo            string          `json:"tipo"`
	MontoGuaranies  decimal.Decimal `json:"monto_guaranies"`
	MontoDolares    decimal.Decimal `json:"monto_dolares"`
	MontoReales     decimal.Decimal `json:"monto_reales"`
	Motivo          string          `json:"motivo"`
	Estado          string          `json:"estado"`
	MotivoAnulacion *string         `json:"motivo_anulacion"`
	AnuladoAt       *string         `json:"anulado_at"`
	UsuarioID       string          `json:"usuario_id"`
	CreatedAt       string          `json:"created_at"`
}

// CrearUsoDevolucionResponse returns the operation, the persona's balances
// after it and the caja mayor entries it produced.
type CrearUsoDevolucionResponse struct {
	Operacion       UsoDevolucionResponse         `json:"operacion"`
	SaldosPersona   []SaldoResponse               `json:"saldos_persona"`
	MovimientosCaja []MovimientoCajaMayorResponse `json:"movimientos_caja"`
}

type UsoDevolucionListResponse struct {
	Data  []UsoDevolucionResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
