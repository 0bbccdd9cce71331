package handler

import (
	"net/http"

	"sistema-servicios/internal/apierror"
	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DepositosHandler struct{ svc service.DepositoService }

func NewDepositosHandler(svc service.DepositoService) *DepositosHandler {
	return &DepositosHandler{svc: svc}
}

// ── Bancos y cuentas ──────────────────────────────────────────────────────────

func (h *DepositosHandler) CrearBanco(c *gin.Context) {
	var req dto.CrearBancoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearBanco(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DepositosHandler) ListarBancos(c *gin.Context) {
	resp, err := h.svc.ListarBancos(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CrearCuenta godoc
// @Summary Registra una cuenta bancaria en una moneda
// @Tags bancos
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param body body dto.CrearCuentaBancariaRequest true "Cuenta"
// @Success 201 {object} dto.CuentaBancariaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas-bancarias [post]
func (h *DepositosHandler) CrearCuenta(c *gin.Context) {
	var req dto.CrearCuentaBancariaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCuenta(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DepositosHandler) ListarCuentas(c *gin.Context) {
	var bancoID *uuid.UUID
	if raw := c.Query("banco_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("banco_id inválido"))
			return
		}
		bancoID = &id
	}
	resp, err := h.svc.ListarCuentas(c.Request.Context(), bancoID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ── Depósitos ─────────────────────────────────────────────────────────────────

// Crear godoc
// @Summary Registra un deposito bancario
// @Description Egresa el monto de caja mayor. Si ese asiento falla el deposito
// @Description queda registrado y el asiento se completa en segundo plano.
// @Tags depositos
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param Idempotency-Key header string false "Clave de reintento seguro"
// @Param body body dto.CrearDepositoRequest true "Deposito"
// @Success 201 {object} dto.OperacionDepositoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/depositos [post]
func (h *DepositosHandler) Crear(c *gin.Context) {
	var req dto.CrearDepositoRequest
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

// Cancelar godoc
// @Summary Cancela un deposito y devuelve el monto a caja mayor
// @Tags depositos
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID del deposito"
// @Param body body dto.CancelarDepositoRequest true "Motivo"
// @Success 200 {object} dto.OperacionDepositoResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/depositos/{id}/cancelar [post]
func (h *DepositosHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarDepositoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary Corrige boleta, fecha, observacion o comprobante de un deposito activo
// @Tags depositos
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID del deposito"
// @Param body body dto.ActualizarDepositoRequest true "Campos a modificar"
// @Success 200 {object} dto.DepositoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/depositos/{id} [put]
func (h *DepositosHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarDepositoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DepositosHandler) Obtener(c *gin.Context) {
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
// @Summary Lista depositos
// @Tags depositos
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param cuenta_bancaria_id query string false "Cuenta"
// @Param estado query string false "activo | cancelado"
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Success 200 {object} dto.DepositoListResponse
// @Router /v1/depositos [get]
func (h *DepositosHandler) Listar(c *gin.Context) {
	var filter dto.DepositoFilter
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
