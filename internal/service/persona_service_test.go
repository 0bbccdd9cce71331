package service_test

import (
	"context"
	"testing"

	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersona_DocumentoDuplicado(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	req := dto.CrearPersonaRequest{Nombre: "Pedro Caballero", Documento: "1234567", Tipo: "cliente"}

	_, err := e.personas.Crear(ctx, req)
	require.NoError(t, err)
	_, err = e.personas.Crear(ctx, req)
	assert.ErrorIs(t, err, service.ErrConflicto)
}

func TestPersona_SaldosTodasLasMonedas(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.nuevaPersona(t, "Elena Martínez")

	resp, err := e.personas.Saldos(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, resp.Saldos, 3)
	for _, s := range resp.Saldos {
		assert.True(t, s.Saldo.IsZero(), s.Moneda)
	}

	_, err = e.personas.Saldos(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
}

func TestPersona_ListarBuscar(t *testing.T) {
	e := nuevoEntorno(t)
	e.nuevaPersona(t, "Roberto Insfrán")
	e.nuevaPersona(t, "Ramona Insfrán")
	e.nuevaPersona(t, "Walter Sosa")

	resp, err := e.personas.Listar(context.Background(), dto.PersonaFilter{
		Buscar:     "insfr",
		Paginacion: dto.Paginacion{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
}
