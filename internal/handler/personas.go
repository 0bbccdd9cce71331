package handler

import (
	"net/http"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/service"

	"github.com/gin-gonic/gin"
)

type PersonasHandler struct{ svc service.PersonaService }

func NewPersonasHandler(svc service.PersonaService) *PersonasHandler {
	return &PersonasHandler{svc: svc}
}

// Crear godoc
// @Summary Registra una persona (funcionario o cliente)
// @Tags personas
// @Accept json
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param body body dto.CrearPersonaRequest true "Datos de la persona"
// @Success 201 {object} dto.PersonaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/personas [post]
func (h *PersonasHandler) Crear(c *gin.Context) {
	var req dto.CrearPersonaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista personas
// @Tags personas
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param tipo query string false "funcionario | cliente"
// @Param q query string false "Busca por nombre o documento"
// @Param page query int false "Pagina"
// @Param limit query int false "Tamaño de pagina"
// @Success 200 {object} dto.PersonaListResponse
// @Router /v1/personas [get]
func (h *PersonasHandler) Listar(c *gin.Context) {
	var filter dto.PersonaFilter
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

func (h *PersonasHandler) Obtener(c *gin.Context) {
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

// Saldos godoc
// @Summary Saldo de la persona en cada moneda
// @Tags personas
// @Produce json
// @Param X-Usuario-ID header string true "Usuario que opera"
// @Param id path string true "ID de persona"
// @Success 200 {object} dto.SaldosPersonaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/personas/{id}/saldos [get]
func (h *PersonasHandler) Saldos(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Saldos(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
