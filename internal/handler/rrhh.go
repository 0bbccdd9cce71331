package handler

import (
	"net/http"
	"strconv"

	"sistema-servicios/internal/apierror"
	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RRHHHandler struct{ svc service.RRHHService }

func NewRRHHHandler(svc service.RRHHService) *RRHHHandler { return &RRHHHandler{svc: svc} }

// ── Movimientos, vales y sueldos ──────────────────────────────────────────────

// CrearMovimiento godoc
// @Summary Registra un ajuste manual (bonificacion, descuento...) en un mes abierto
// @Tags rrhh
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param body body dto.CrearMovimientoRRHHRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoRRHHResponse
// @Failure 409 {object} apierror.APIError "mes finalizado"
// @Router /v1/rrhh/movimientos [post]
func (h *RRHHHandler) CrearMovimiento(c *gin.Context) {
	var req dto.CrearMovimientoRRHHRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearMovimiento(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RRHHHandler) AnularMovimiento(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.AnularMovimiento(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RRHHHandler) CrearVale(c *gin.Context) {
	var req dto.CrearValeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearVale(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RRHHHandler) AnularVale(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.AnularVale(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RRHHHandler) RegistrarSueldo(c *gin.Context) {
	var req dto.RegistrarSueldoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarSueldo(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ── Cierre de mes ─────────────────────────────────────────────────────────────

// Finalizar godoc
// @Summary Finaliza el mes: congela las lineas y los totales con las cotizaciones dadas
// @Tags rrhh
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param body body dto.FinalizarMesRequest true "Periodo y cotizaciones"
// @Success 200 {object} dto.ResumenRRHHResponse
// @Failure 409 {object} apierror.APIError "ya finalizado"
// @Router /v1/rrhh/finalizar [post]
func (h *RRHHHandler) Finalizar(c *gin.Context) {
	var req dto.FinalizarMesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.FinalizarMes(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reabrir godoc
// @Summary Reabre un mes finalizado para volver a editarlo
// @Tags rrhh
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param body body dto.ReabrirMesRequest true "Periodo"
// @Success 200 {object} dto.ResumenRRHHResponse
// @Failure 409 {object} apierror.APIError "no finalizado"
// @Router /v1/rrhh/reabrir [post]
func (h *RRHHHandler) Reabrir(c *gin.Context) {
	var req dto.ReabrirMesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ReabrirMes(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMovimientos godoc
// @Summary Resumen del mes: congelado si esta finalizado, recalculado si esta abierto
// @Tags rrhh
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param persona_id path string true "ID de persona"
// @Param anio path int true "Año"
// @Param mes path int true "Mes (1-12)"
// @Param cotizacion_usd query string false "Gs. por USD, para total_final_gs"
// @Param cotizacion_brl query string false "Gs. por BRL, para total_final_gs"
// @Success 200 {object} dto.ResumenRRHHResponse
// @Router /v1/rrhh/{persona_id}/{anio}/{mes} [get]
func (h *RRHHHandler) GetMovimientos(c *gin.Context) {
	resp, ok := h.resumen(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DescargarPDF godoc
// @Summary Resumen del mes en PDF
// @Tags rrhh
// @Produce application/pdf
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param persona_id path string true "ID de persona"
// @Param anio path int true "Año"
// @Param mes path int true "Mes (1-12)"
// @Success 200 {file} binary
// @Router /v1/rrhh/{persona_id}/{anio}/{mes}/pdf [get]
func (h *RRHHHandler) DescargarPDF(c *gin.Context) {
	resp, ok := h.resumen(c)
	if !ok {
		return
	}
	pdf, err := infra.RenderResumenPDF(resp)
	if err != nil {
		responderError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+infra.ResumenPDFName(resp)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *RRHHHandler) resumen(c *gin.Context) (*dto.ResumenRRHHResponse, bool) {
	personaID, ok := paramUUID(c, "persona_id")
	if !ok {
		return nil, false
	}
	anio, errA := strconv.Atoi(c.Param("anio"))
	mes, errM := strconv.Atoi(c.Param("mes"))
	if errA != nil || errM != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Periodo inválido"))
		return nil, false
	}
	var q dto.CotizacionesQuery
	if !bindQuery(c, &q) {
		return nil, false
	}
	cot, ok := parseCotizaciones(c, q)
	if !ok {
		return nil, false
	}

	resp, err := h.svc.GetMovimientos(c.Request.Context(), personaID, mes, anio, cot)
	if err != nil {
		responderError(c, err)
		return nil, false
	}
	return resp, true
}

// parseCotizaciones returns nil when neither rate is given; both are required
// otherwise. Range checks are left to the service.
func parseCotizaciones(c *gin.Context, q dto.CotizacionesQuery) (*dto.Cotizaciones, bool) {
	if q.USD == "" && q.BRL == "" {
		return nil, true
	}
	usd, errU := decimal.NewFromString(q.USD)
	brl, errB := decimal.NewFromString(q.BRL)
	if errU != nil || errB != nil {
		c.JSON(http.StatusBadRequest, apierror.New("cotizacion_usd y cotizacion_brl deben ser números"))
		return nil, false
	}
	return &dto.Cotizaciones{USD: usd, BRL: brl}, true
}
