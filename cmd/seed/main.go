// cmd/seed/main.go: carga bancos, cuentas y personas de demo.
// Uso: go run ./cmd/seed
// Se puede correr varias veces: lo que ya existe se saltea.
package main

import (
	"context"
	"errors"
	"os"

	"sistema-servicios/internal/config"
	"sistema-servicios/internal/dto"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/repository"
	"sistema-servicios/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type cuentaDemo struct {
	banco, numero, moneda string
}

var (
	personasDemo = []dto.CrearPersonaRequest{
		{Nombre: "Ana Benítez", Documento: "4123456", Tipo: "funcionario", AsociadoIPS: true, Email: ptr("ana.benitez@example.com")},
		{Nombre: "Carlos Ortiz", Documento: "3890123", Tipo: "funcionario", AsociadoIPS: true},
		{Nombre: "Lucía Gómez", Documento: "5012345", Tipo: "cliente"},
	}
	cuentasDemo = []cuentaDemo{
		{"Banco Continental", "001-234567", "PYG"},
		{"Banco Continental", "001-890123", "USD"},
		{"Banco Itaú", "77-100200", "BRL"},
	}
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	ctx := context.Background()

	personas := service.NewPersonaService(repository.NewPersonaRepository(db))
	for _, req := range personasDemo {
		p, err := personas.Crear(ctx, req)
		switch {
		case errors.Is(err, service.ErrConflicto):
			log.Info().Str("documento", req.Documento).Msg("persona ya existe")
		case err != nil:
			log.Fatal().Err(err).Str("documento", req.Documento).Msg("crear persona")
		default:
			log.Info().Str("id", p.ID).Str("nombre", p.Nombre).Msg("persona creada")
		}
	}

	// nil encolador: bancos and cuentas never touch caja mayor
	cajaMayorRepo := repository.NewCajaMayorRepository(db)
	depositos := service.NewDepositoService(
		repository.NewDepositoRepository(db),
		repository.NewBancoRepository(db),
		service.NewCajaMayorService(cajaMayorRepo),
		cajaMayorRepo,
		nil,
	)
	if err := seedCuentas(ctx, depositos); err != nil {
		log.Fatal().Err(err).Msg("seed cuentas")
	}
	log.Info().Msg("seed completo")
}

func seedCuentas(ctx context.Context, svc service.DepositoService) error {
	bancos, err := svc.ListarBancos(ctx)
	if err != nil {
		return err
	}
	ids := make(map[string]string, len(bancos))
	for _, b := range bancos {
		ids[b.Nombre] = b.ID
	}

	existentes, err := svc.ListarCuentas(ctx, nil)
	if err != nil {
		return err
	}
	numeros := make(map[string]bool, len(existentes))
	for _, c := range existentes {
		numeros[c.NumeroCuenta] = true
	}

	for _, c := range cuentasDemo {
		if _, ok := ids[c.banco]; !ok {
			b, err := svc.CrearBanco(ctx, dto.CrearBancoRequest{Nombre: c.banco})
			if err != nil {
				return err
			}
			ids[c.banco] = b.ID
			log.Info().Str("banco", c.banco).Msg("banco creado")
		}
		if numeros[c.numero] {
			continue
		}
		if _, err := svc.CrearCuenta(ctx, dto.CrearCuentaBancariaRequest{
			BancoID:      ids[c.banco],
			NumeroCuenta: c.numero,
			Moneda:       c.moneda,
			Titular:      "Farmacia Central S.A.",
		}); err != nil {
			return err
		}
		log.Info().Str("cuenta", c.numero).Str("moneda", c.moneda).Msg("cuenta creada")
	}
	return nil
}

func ptr(s string) *string { return &s }
