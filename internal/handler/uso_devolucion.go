package handler

import (
	"net/http"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
)

type UsoDevolucionHandler struct{ svc service.UsoDevolucionService }

func NewUsoDevolucionHandler(svc service.UsoDevolucionService) *UsoDevolucionHandler {
	return &UsoDevolucionHandler{svc: svc}
}

// Crear godoc
// @Summary Registra un uso o una devolucion de efectivo
// @Description USO: la persona retira efectivo (su saldo baja, entra a caja mayor).
// @Description DEVOLUCION: la persona devuelve efectivo (su saldo sube, sale de caja mayor).
// @Tags uso-devolucion
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param Idempotency-Key header string false "Clave de reintento seguro"
// @Param body body dto.CrearUsoDevolucionRequest true "Montos por moneda"
// @Success 201 {object} dto.CrearUsoDevolucionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/uso-devolucion [post]
func (h *UsoDevolucionHandler) Crear(c *gin.Context) {
	var req dto.CrearUsoDevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Anular godoc
// @Summary Anula una operacion y revierte sus efectos
// @Tags uso-devolucion
// @Accept json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID de la operacion"
// @Param body body dto.AnularRequest true "Motivo"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/uso-devolucion/{id}/anular [post]
func (h *UsoDevolucionHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Anular(c.Request.Context(), id, middleware.GetActor(c), req.Motivo); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UsoDevolucionHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary Lista operaciones de uso/devolucion
// @Tags uso-devolucion
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param persona_id query string false "Filtra por persona"
// @Param tipo query string false "USO | DEVOLUCION"
// @Param estado query string false "activo | anulado"
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Success 200 {object} dto.UsoDevolucionListResponse
// @Router /v1/uso-devolucion [get]
func (h *UsoDevolucionHandler) Listar(c *gin.Context) {
	var filter dto.UsoDevolucionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
