package service

import (
	"context"
	"strings"
	"time"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction bound to ctx.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

func parseUUID(s, campo string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, validacion("%s inválido", campo)
	}
	return id, nil
}

func parseMoneda(s string) (model.Moneda, error) {
	m, err := model.ParseMoneda(s)
	if err != nil {
		return "", validacion("moneda no reconocida: %q", s)
	}
	return m, nil
}

// validarMonto rejects negative amounts and more fractional digits than the
// currency allows.
func validarMonto(m model.Moneda, monto decimal.Decimal) error {
	if monto.IsNegative() {
		return validacion("el monto en %s no puede ser negativo", m)
	}
	if !m.PrecisionValida(monto) {
		if m.Decimales() == 0 {
			return validacion("el monto en %s no admite decimales", m)
		}
		return validacion("el monto en %s admite hasta %d decimales", m, m.Decimales())
	}
	return nil
}

// validarMontoPositivo is validarMonto plus a strictly-positive check.
func validarMontoPositivo(m model.Moneda, monto decimal.Decimal) error {
	if !monto.IsPositive() {
		return validacion("el monto debe ser mayor a cero")
	}
	return validarMonto(m, monto)
}

func parseFecha(s, campo string) (time.Time, error) {
	t, err := time.Parse(dto.FechaLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, validacion("%s debe tener formato AAAA-MM-DD", campo)
	}
	return t.UTC(), nil
}

func validarPeriodo(mes, anio int) error {
	if mes < 1 || mes > 12 {
		return validacion("mes debe estar entre 1 y 12")
	}
	if anio < 2000 || anio > 2100 {
		return validacion("año fuera de rango")
	}
	return nil
}

// limitesPeriodo returns [inicio, fin) of the month in UTC.
func limitesPeriodo(mes, anio int) (time.Time, time.Time) {
	inicio := time.Date(anio, time.Month(mes), 1, 0, 0, 0, 0, time.UTC)
	return inicio, inicio.AddDate(0, 1, 0)
}

func ahora() time.Time { return time.Now().UTC() }

func fmtFecha(t time.Time) string { return t.UTC().Format(dto.FechaLayout) }

func fmtFechaHora(t time.Time) string { return t.UTC().Format(dto.FechaHoraLayout) }

func fmtFechaHoraPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtFechaHora(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// saldosCompletos lists every currency, filling the missing ones with zero.
func saldosCompletos(saldos map[model.Moneda]decimal.Decimal) []dto.SaldoResponse {
	out := make([]dto.SaldoResponse, 0, len(model.Monedas))
	for _, m := range model.Monedas {
		out = append(out, dto.SaldoResponse{Moneda: string(m), Saldo: saldos[m]})
	}
	return out
}
