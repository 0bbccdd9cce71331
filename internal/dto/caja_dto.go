package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type MontosMoneda struct {
	GS  decimal.Decimal `json:"GS"  validate:"min=0"`
	USD decimal.Decimal `json:"USD" validate:"min=0"`
	BRL decimal.Decimal `json:"BRL" validate:"min=0"`
}

type AbrirCajaRequest struct {
	PuntoDeVenta    int          `json:"punto_de_venta"   validate:"required,min=1"`
	MontosIniciales MontosMoneda `json:"montos_iniciales"`
}

type DeclaracionMoneda struct {
	Efectivo      decimal.Decimal `json:"efectivo"      validate:"min=0"`
	POS           decimal.Decimal `json:"pos"           validate:"min=0"`
	Transferencia decimal.Decimal `json:"transferencia" validate:"min=0"`
}

type DeclaracionArqueo struct {
	GS  DeclaracionMoneda `json:"GS"`
	USD DeclaracionMoneda `json:"USD"`
	BRL DeclaracionMoneda `json:"BRL"`
}

type ArqueoRequest struct {
	SesionCajaID  string            `json:"sesion_caja_id" validate:"required,uuid"`
	Declaracion   DeclaracionArqueo `json:"declaracion"`
	Observaciones *string           `json:"observaciones"`
}

type MovimientoManualRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"required,uuid"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=ingreso_manual egreso_manual venta"`
	MetodoPago   string          `json:"metodo_pago"    validate:"required,oneof=efectivo pos transferencia"`
	Moneda       string          `json:"moneda"         validate:"required"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type MontosPorMetodo struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	POS           decimal.Decimal `json:"pos"`
	Transferencia decimal.Decimal `json:"transferencia"`
	Total         decimal.Decimal `json:"total"`
}

type ArqueoMonedaResponse struct {
	Moneda                string          `json:"moneda"`
	MontoEsperado         MontosPorMetodo `json:"monto_esperado"`
	MontoDeclarado        MontosPorMetodo `json:"monto_declarado"`
	Desvio                DesvioResponse  `json:"desvio"`
	MovimientoCajaMayorID *string         `json:"movimiento_caja_mayor_id"`
}

type ArqueoResponse struct {
	SesionCajaID  string                 `json:"sesion_caja_id"`
	Monedas       []ArqueoMonedaResponse `json:"monedas"`
	Clasificacion string                 `json:"clasificacion"`
	Estado        string                 `json:"estado"`
}

type ReporteCajaResponse struct {
	SesionCajaID    string                 `json:"sesion_caja_id"`
	PuntoDeVenta    int                    `json:"punto_de_venta"`
	UsuarioID       string                 `json:"usuario_id"`
	MontosIniciales MontosMoneda           `json:"montos_iniciales"`
	Arqueo          []ArqueoMonedaResponse `json:"arqueo"`
	Clasificacion   *string                `json:"clasificacion"`
	Estado          string                 `json:"estado"`
	Observaciones   *string                `json:"observaciones"`
	OpenedAt        string                 `json:"opened_at"`
	ClosedAt        *string                `json:"closed_at"`
}

type SesionCajaListResponse struct {
	Data  []ReporteCajaResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}
