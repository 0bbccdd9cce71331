package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// MovimientoCajaMayorRequest is a manual ingreso/egreso on the main register.
type MovimientoCajaMayorRequest struct {
	Tipo     string          `json:"tipo"     validate:"required,oneof=ingreso egreso"`
	Moneda   string          `json:"moneda"   validate:"required"`
	Monto    decimal.Decimal `json:"monto"    validate:"required,gt=0"`
	Concepto string          `json:"concepto" validate:"required,min=3"`
}

type AnularMovimientoCajaMayorRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// CajaMayorFilter is bound from query string of GET /v1/caja-mayor/movimientos.
type CajaMayorFilter struct {
	Moneda string `form:"moneda"`
	Tipo   string `form:"tipo"`
	Desde  string `form:"desde"` // YYYY-MM-DD inclusive
	Hasta  string `form:"hasta"` // YYYY-MM-DD inclusive
	Paginacion
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoCajaMayorResponse struct {
	ID             string          `json:"id"`
	Tipo           string          `json:"tipo"`
	EsIngreso      bool            `json:"es_ingreso"`
	Moneda         string          `json:"moneda"`
	Monto          decimal.Decimal `json:"monto"`
	SaldoAnterior  decimal.Decimal `json:"saldo_anterior"`
	SaldoActual    decimal.Decimal `json:"saldo_actual"`
	Concepto       string          `json:"concepto"`
	ReferenciaTipo string          `json:"referencia_tipo"`
	ReferenciaID   *string         `json:"referencia_id"`
	Anulado        bool            `json:"anulado"`
	UsuarioID      string          `json:"usuario_id"`
	CreatedAt      string          `json:"created_at"`
}

type CajaMayorListResponse struct {
	Data  []MovimientoCajaMayorResponse `json:"data"`
	Total int64                         `json:"total"`
	Page  int                           `json:"page"`
	Limit int                           `json:"limit"`
}

// SaldosCajaMayorResponse always lists every currency, zero when untouched.
type SaldosCajaMayorResponse struct {
	Saldos []SaldoResponse `json:"saldos"`
}
