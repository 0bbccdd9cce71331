package handler

import (
	"net/http"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Cajero"
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.ReporteCajaResponse
// @Failure 409 {object} apierror.APIError "el punto de venta ya tiene una sesion abierta"
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Arqueo godoc
// @Summary Realiza el arqueo ciego y cierra la sesion
// @Description El efectivo declarado de cada moneda ingresa a caja mayor.
// @Tags caja
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Cajero"
// @Param body body dto.ArqueoRequest true "Declaracion de arqueo"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 400 {object} apierror.APIError "desvio critico sin observaciones"
// @Failure 409 {object} apierror.APIError "sesion cerrada"
// @Router /v1/caja/arqueo [post]
func (h *CajaHandler) Arqueo(c *gin.Context) {
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Arqueo(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerReporte godoc
// @Summary Obtiene el reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra una venta, un ingreso o un egreso manual en la sesion
// @Tags caja
// @Accept json
// @Param X-Usuario-ID header string true "Cajero"
// @Param body body dto.MovimientoManualRequest true "Movimiento"
// @Success 204
// @Failure 409 {object} apierror.APIError "sesion cerrada"
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.RegistrarMovimiento(c.Request.Context(), middleware.GetActor(c), req); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetActiva returns the open session of the acting cashier.
func (h *CajaHandler) GetActiva(c *gin.Context) {
	resp, err := h.svc.GetActiva(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of cash sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	var p dto.Paginacion
	if !bindQuery(c, &p) {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), p)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
