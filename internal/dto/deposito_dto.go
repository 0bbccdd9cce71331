package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearBancoRequest struct {
	Nombre string `json:"nombre" validate:"required,min=2"`
}

type CrearCuentaBancariaRequest struct {
	BancoID      string `json:"banco_id"      validate:"required,uuid"`
	NumeroCuenta string `json:"numero_cuenta" validate:"required"`
	Moneda       string `json:"moneda"        validate:"required"`
	Titular      string `json:"titular"       validate:"required"`
}

type CrearDepositoRequest struct {
	CuentaBancariaID string          `json:"cuenta_bancaria_id" validate:"required,uuid"`
	NumeroBoleta     string          `json:"numero_boleta"      validate:"required,max=50"`
	Monto            decimal.Decimal `json:"monto"              validate:"required,gt=0"`
	FechaDeposito    string          `json:"fecha_deposito"     validate:"omitempty,datetime=2006-01-02"` // empty = today
	Observacion      string          `json:"observacion"`
	ComprobanteURL   *string         `json:"comprobante_url"`
}

// ActualizarDepositoRequest only touches the fields that are present.
// The amount and the account can never change.
type ActualizarDepositoRequest struct {
	NumeroBoleta   *string `json:"numero_boleta"   validate:"omitempty,min=1,max=50"`
	FechaDeposito  *string `json:"fecha_deposito"  validate:"omitempty,datetime=2006-01-02"`
	Observacion    *string `json:"observacion"`
	ComprobanteURL *string `json:"comprobante_url"`
}

type CancelarDepositoRequest struct {
	Motivo       string  `json:"motivo"        validate:"required,min=3"`
	MovimientoID *string `json:"movimiento_id" validate:"omitempty,uuid"`
}

// DepositoFilter is bound from query string of GET /v1/depositos.
type DepositoFilter struct {
	CuentaBancariaID string `form:"cuenta_bancaria_id"`
	Estado           string `form:"estado"`
	Desde            string `form:"desde"`
	Hasta            string `form:"hasta"`
	Paginacion
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BancoResponse struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Activo bool   `json:"activo"`
}

type CuentaBancariaResponse struct {
	ID           string `json:"id"`
	BancoID      string `json:"banco_id"`
	Banco        string `json:"banco"`
	NumeroCuenta string `json:"numero_cuenta"`
	Moneda       string `json:"moneda"`
	Titular      string `json:"titular"`
	Activo       bool   `json:"activo"`
}

type DepositoResponse struct {
	ID                string          `json:"id"`
	CuentaBancariaID  string          `json:"cuenta_bancaria_id"`
	Banco             string          `json:"banco,omitempty"`
	NumeroCuenta      string          `json:"numero_cuenta,omitempty"`
	NumeroBoleta      string          `json:"numero_boleta"`
	Monto             decimal.Decimal `json:"monto"`
	Moneda            string          `json:"moneda"`
	FechaDeposito     string          `json:"fecha_deposito"`
	Observacion       string          `json:"observacion"`
	ComprobanteURL    *string         `json:"comprobante_url"`
	Estado            string          `json:"estado"`
	MotivoCancelacion *string         `json:"motivo_cancelacion"`
	CanceladoAt       *string         `json:"cancelado_at"`
	MovimientoID      *string         `json:"movimiento_id"`
	CreatedAt         string          `json:"created_at"`
}

// OperacionDepositoResponse is returned by create and cancel. Movimiento and
// SaldoCaja are nil when no caja mayor entry was written.
type OperacionDepositoResponse struct {
	Deposito   DepositoResponse             `json:"deposito"`
	Movimiento *MovimientoCajaMayorResponse `json:"movimiento_caja"`
	SaldoCaja  *decimal.Decimal             `json:"saldo_caja"`
}

type DepositoListResponse struct {
	Data  []DepositoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
