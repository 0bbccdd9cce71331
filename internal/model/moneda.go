package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Moneda is the closed set of currencies handled by the treasury.
// Every table stores the ISO code; legacy spellings ("guaranies", "GS",
// "dolares", "R$"...) are only accepted at the edge through ParseMoneda.
type Moneda string

const (
	PYG Moneda = "PYG"
	USD Moneda = "USD"
	BRL Moneda = "BRL"
)

// Monedas lists the supported currencies in display order.
var Monedas = []Moneda{PYG, USD, BRL}

var ErrMonedaInvalida = errors.New("moneda no reconocida")

var aliasMoneda = map[string]Moneda{
	"pyg":       PYG,
	"gs":        PYG,
	"g":         PYG,
	"₲":         PYG,
	"guarani":   PYG,
	"guaranies": PYG,
	"usd":       USD,
	"us$":       USD,
	"u$s":       USD,
	"dolar":     USD,
	"dolares":   USD,
	"brl":       BRL,
	"r$":        BRL,
	"real":      BRL,
	"reales":    BRL,
}

var sinAcentos = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// ParseMoneda is the only string → Moneda conversion in the codebase.
func ParseMoneda(s string) (Moneda, error) {
	key := sinAcentos.Replace(strings.ToLower(strings.TrimSpace(s)))
	if m, ok := aliasMoneda[key]; ok {
		return m, nil
	}
	return "", ErrMonedaInvalida
}

// Decimales returns the number of fractional digits allowed for the currency.
// The guaraní has no subunit in this domain.
func (m Moneda) Decimales() int32 {
	if m == PYG {
		return 0
	}
	return 2
}

// Valida reports whether m is one of the supported currencies.
func (m Moneda) Valida() bool {
	return m == PYG || m == USD || m == BRL
}

// PrecisionValida reports whether monto fits the currency's precision.
func (m Moneda) PrecisionValida(monto decimal.Decimal) bool {
	return monto.Equal(monto.Truncate(m.Decimales()))
}

// Cotizaciones are the exchange rates (guaraníes per unit) supplied by the
// caller when a payroll month is closed.
type Cotizaciones struct {
	USD decimal.Decimal `json:"USD"`
	BRL decimal.Decimal `json:"BRL"`
}

// AGuaranies converts a per-currency total into guaraníes.
func (c Cotizaciones) AGuaranies(m Moneda, monto decimal.Decimal) decimal.Decimal {
	switch m {
	case USD:
		return monto.Mul(c.USD)
	case BRL:
		return monto.Mul(c.BRL)
	default:
		return monto
	}
}
