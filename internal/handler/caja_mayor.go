package handler

import (
	"net/http"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaMayorHandler struct{ svc service.CajaMayorService }

func NewCajaMayorHandler(svc service.CajaMayorService) *CajaMayorHandler {
	return &CajaMayorHandler{svc: svc}
}

// RegistrarManual godoc
// @Summary Registra un ingreso o egreso manual en caja mayor
// @Tags caja-mayor
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param Idempotency-Key header string false "Clave de reintento seguro"
// @Param body body dto.MovimientoCajaMayorRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoCajaMayorResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caja-mayor/movimientos [post]
func (h *CajaMayorHandler) RegistrarManual(c *gin.Context) {
	var req dto.MovimientoCajaMayorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarManual(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AnularManual godoc
// @Summary Anula un movimiento manual con un asiento inverso
// @Tags caja-mayor
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID del movimiento"
// @Param body body dto.AnularMovimientoCajaMayorRequest true "Motivo"
// @Success 201 {object} dto.MovimientoCajaMayorResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja-mayor/movimientos/{id}/anular [post]
func (h *CajaMayorHandler) AnularManual(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularMovimientoCajaMayorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AnularManual(c.Request.Context(), id, middleware.GetActor(c), req.Motivo)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Libro de caja mayor
// @Tags caja-mayor
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param moneda query string false "PYG | USD | BRL"
// @Param tipo query string false "Tipo de movimiento"
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Success 200 {object} dto.CajaMayorListResponse
// @Router /v1/caja-mayor/movimientos [get]
func (h *CajaMayorHandler) Listar(c *gin.Context) {
	var filter dto.CajaMayorFilter
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

// Saldos godoc
// @Summary Saldo de caja mayor por moneda
// @Tags caja-mayor
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Success 200 {object} dto.SaldosCajaMayorResponse
// @Router /v1/caja-mayor/saldos [get]
func (h *CajaMayorHandler) Saldos(c *gin.Context) {
	resp, err := h.svc.Saldos(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
