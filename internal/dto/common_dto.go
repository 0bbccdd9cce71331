package dto

import "github.com/shopspring/decimal"

// Paginacion is embedded in list filters bound from the query string.
type Paginacion struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=200"`
}

// Offset returns the row offset for the requested page.
func (p Paginacion) Offset() int { return (p.Page - 1) * p.Limit }

type SaldoResponse struct {
	Moneda string          `json:"moneda"`
	Saldo  decimal.Decimal `json:"saldo"`
}

// FechaLayout is used for every date-only field on the wire.
const FechaLayout = "2006-01-02"

// FechaHoraLayout is used for every timestamp on the wire (always UTC).
const FechaHoraLayout = "2006-01-02T15:04:05Z"
