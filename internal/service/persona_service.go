package service

import (
	"context"
	"errors"
	"strings"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/model"
	"sistema-servicios/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PersonaService interface {
	Crear(ctx context.Context, req dto.CrearPersonaRequest) (*dto.PersonaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.PersonaResponse, error)
	Listar(ctx context.Context, filter dto.PersonaFilter) (*dto.PersonaListResponse, error)
	Saldos(ctx context.Context, id uuid.UUID) (*dto.SaldosPersonaResponse, error)
}

type personaService struct {
	repo repository.PersonaRepository
}

func NewPersonaService(repo repository.PersonaRepository) PersonaService {
	return &personaService{repo: repo}
}

func (s *personaService) Crear(ctx context.Context, req dto.CrearPersonaRequest) (*dto.PersonaResponse, error) {
	p := &model.Persona{
		Nombre:      strings.TrimSpace(req.Nombre),
		Documento:   strings.TrimSpace(req.Documento),
		Tipo:        req.Tipo,
		Email:       req.Email,
		AsociadoIPS: req.AsociadoIPS,
		Activo:      true,
	}
	if p.Nombre == "" || p.Documento == "" {
		return nil, validacion("nombre y documento son obligatorios")
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflicto("ya existe una persona con el documento %s", p.Documento)
		}
		return nil, err
	}
	return personaToResponse(p), nil
}

func (s *personaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.PersonaResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}
	return personaToResponse(p), nil
}

func (s *personaService) Listar(ctx context.Context, filter dto.PersonaFilter) (*dto.PersonaListResponse, error) {
	personas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PersonaResponse, 0, len(personas))
	for i := range personas {
		data = append(data, *personaToResponse(&personas[i]))
	}
	return &dto.PersonaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Saldos returns the persona's balance in every currency; a currency never
// touched reports zero.
func (s *personaService) Saldos(ctx context.Context, id uuid.UUID) (*dto.SaldosPersonaResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, siNoExiste(err, "persona no encontrada")
	}
	saldos, err := saldosPersona(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return &dto.SaldosPersonaResponse{PersonaID: id.String(), Saldos: saldos}, nil
}

func saldosPersona(ctx context.Context, repo repository.PersonaRepository, id uuid.UUID) ([]dto.SaldoResponse, error) {
	rows, err := repo.Saldos(ctx, id)
	if err != nil {
		return nil, err
	}
	saldos := map[model.Moneda]decimal.Decimal{}
	for _, r := range rows {
		saldos[r.Moneda] = r.Saldo
	}
	return saldosCompletos(saldos), nil
}

func personaToResponse(p *model.Persona) *dto.PersonaResponse {
	return &dto.PersonaResponse{
		ID:          p.ID.String(),
		Nombre:      p.Nombre,
		Documento:   p.Documento,
		Tipo:        p.Tipo,
		Email:       p.Email,
		AsociadoIPS: p.AsociadoIPS,
		Activo:      p.Activo,
	}
}
