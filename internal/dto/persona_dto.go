package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearPersonaRequest struct {
	Nombre      string  `json:"nombre"       validate:"required,min=2"`
	Documento   string  `json:"documento"    validate:"required"`
	Tipo        string  `json:"tipo"         validate:"required,oneof=funcionario cliente"`
	Email       *string `json:"email"        validate:"omitempty,email"`
	AsociadoIPS bool    `json:"asociado_ips"`
}

// PersonaFilter is bound from query string of GET /v1/personas.
type PersonaFilter struct {
	Tipo   string `form:"tipo"`
	Buscar string `form:"q"`
	Paginacion
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PersonaResponse struct {
	ID          string  `json:"id"`
	Nombre      string  `json:"nombre"`
	Documento   string  `json:"documento"`
	Tipo        string  `json:"tipo"`
	Email       *string `json:"email"`
	AsociadoIPS bool    `json:"asociado_ips"`
	Activo      bool    `json:"activo"`
}

type PersonaListResponse struct {
	Data  []PersonaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// SaldosPersonaResponse is returned by GET /v1/personas/:id/saldos.
type SaldosPersonaResponse struct {
	PersonaID string          `json:"persona_id"`
	Saldos    []SaldoResponse `json:"saldos"`
}
