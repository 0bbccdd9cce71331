package infra

// pdf.go: month summary of a funcionario (RRHH) rendered with go-pdf/fpdf.
// A4 portrait with:
//   - header with persona, period and state (finalized or open)
//   - one row per line (fecha, origen, concepto, moneda, monto)
//   - totals per currency, plus the guaraní total and rates when known

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

var meses = [...]string{"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}

// ResumenPDFName is the file name used for a summary on disk and as download name.
func ResumenPDFName(r *dto.ResumenRRHHResponse) string {
	return fmt.Sprintf("resumen_%s_%04d_%02d.pdf", r.PersonaID, r.Anio, r.Mes)
}

// GenerateResumenPDF writes the summary to storagePath (created if needed)
// and returns the path of the file.
func GenerateResumenPDF(r *dto.ResumenRRHHResponse, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, ResumenPDFName(r))

	pdf := buildResumenPDF(r)
	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// RenderResumenPDF returns the summary as an in-memory document.
func RenderResumenPDF(r *dto.ResumenRRHHResponse) ([]byte, error) {
	var buf bytes.Buffer
	if err := buildResumenPDF(r).Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func buildResumenPDF(r *dto.ResumenRRHHResponse) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr("Resumen mensual de haberes"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	mes := ""
	if r.Mes >= 1 && r.Mes <= 12 {
		mes = meses[r.Mes]
	}
	pdf.CellFormat(contentW, 6, tr(fmt.Sprintf("%s %d", mes, r.Anio)), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, tr(r.PersonaNombre), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	estado := "Mes abierto (valores provisorios)"
	if r.Finalizado && r.FechaFinalizacion != nil {
		estado = "Finalizado el " + *r.FechaFinalizacion
	}
	pdf.CellFormat(contentW, 5, tr(estado), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Lines ────────────────────────────────────────────────────────────────
	colFecha := contentW * 0.14
	colOrigen := contentW * 0.12
	colConcepto := contentW * 0.44
	colMoneda := contentW * 0.10
	colMonto := contentW * 0.20

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colFecha, 6, "Fecha", "B", 0, "L", true, 0, "")
	pdf.CellFormat(colOrigen, 6, "Origen", "B", 0, "L", true, 0, "")
	pdf.CellFormat(colConcepto, 6, "Concepto", "B", 0, "L", true, 0, "")
	pdf.CellFormat(colMoneda, 6, "Moneda", "B", 0, "C", true, 0, "")
	pdf.CellFormat(colMonto, 6, "Monto", "B", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range r.Movimientos {
		concepto := l.Concepto
		if len([]rune(concepto)) > 55 {
			concepto = string([]rune(concepto)[:54]) + "..."
		}
		pdf.CellFormat(colFecha, 5, l.Fecha, "", 0, "L", false, 0, "")
		pdf.CellFormat(colOrigen, 5, tr(l.Origen), "", 0, "L", false, 0, "")
		pdf.CellFormat(colConcepto, 5, tr(concepto), "", 0, "L", false, 0, "")
		pdf.CellFormat(colMoneda, 5, l.Moneda, "", 0, "C", false, 0, "")
		pdf.CellFormat(colMonto, 5, FormatMonto(l.Moneda, l.Monto), "", 1, "R", false, 0, "")
	}
	if len(r.Movimientos) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, "Sin movimientos en el periodo", "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW - colMonto
	pdf.SetFont("Helvetica", "", 9)
	for _, t := range []struct {
		moneda string
		monto  decimal.Decimal
	}{{"PYG", r.TotalGS}, {"USD", r.TotalUSD}, {"BRL", r.TotalBRL}} {
		pdf.CellFormat(labelW, 5, "Total "+t.moneda+":", "", 0, "R", false, 0, "")
		pdf.CellFormat(colMonto, 5, FormatMonto(t.moneda, t.monto), "", 1, "R", false, 0, "")
	}
	if r.Cotizaciones != nil {
		pdf.SetFont("Helvetica", "I", 8)
		cot := fmt.Sprintf("Cotizaciones: USD %s  BRL %s", FormatMonto("PYG", r.Cotizaciones.USD), FormatMonto("PYG", r.Cotizaciones.BRL))
		pdf.CellFormat(contentW, 5, tr(cot), "", 1, "R", false, 0, "")
	}
	if r.TotalFinalGS != nil {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelW, 7, tr("TOTAL A COBRAR (Gs.):"), "", 0, "R", false, 0, "")
		pdf.CellFormat(colMonto, 7, FormatMonto("PYG", *r.TotalFinalGS), "", 1, "R", false, 0, "")
	}

	return pdf
}

// FormatMonto renders an amount with "." thousands and "," decimals; guaraníes
// without decimals, the other currencies with two.
func FormatMonto(moneda string, d decimal.Decimal) string {
	places := model.Moneda(moneda).Decimales()
	d = d.Round(places)
	entero, frac, _ := strings.Cut(d.Abs().StringFixed(places), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range entero {
		if i > 0 && (len(entero)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
