package infra

import (
	"fmt"
	"strings"
	"time"

	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlitePrefix selects the embedded SQLite driver (local mode and tests).
const sqlitePrefix = "sqlite:"

// NewDatabase establishes a GORM connection, runs AutoMigrate to create / update
// all tables, then applies the idempotent SQL patches that GORM cannot express
// (partial indexes).
//
// A DSN starting with "sqlite:" opens a SQLite file instead of PostgreSQL; the
// pool is then limited to one connection since SQLite serializes writers anyway.
func NewDatabase(dsn string) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		maxOpen   = 25
	)
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
		maxOpen = 1
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(5, maxOpen))

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// NewSQLiteMemory opens a private in-memory database with the full schema.
// Each call gets its own database, so tests do not share state.
func NewSQLiteMemory() (*gorm.DB, error) {
	return NewDatabase(sqlitePrefix + "file:" + uuid.NewString() + "?mode=memory&cache=shared")
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Unique violations surface as gorm.ErrDuplicatedKey on both drivers.
		TranslateError: true,
		// Timestamps are stored in UTC so range filters compare correctly on SQLite.
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// RunMigrations creates every table and applies schema patches. Safe to call
// on an already-migrated database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Persona{},
		&model.SaldoPersona{},
		&model.SaldoCajaMayor{},
		&model.MovimientoCajaMayor{},
		&model.UsoDevolucion{},
		&model.Banco{},
		&model.CuentaBancaria{},
		&model.DepositoBancario{},
		&model.MovimientoRRHH{},
		&model.Vale{},
		&model.Sueldo{},
		&model.ResumenMesRRHH{},
		&model.MovimientoRRHHFinalizado{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.ArqueoCaja{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Every statement must be valid on both PostgreSQL and SQLite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// a boleta number may be reused once the deposit holding it is cancelled
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_depositos_boleta_activa
		    ON depositos_bancarios (numero_boleta)
		    WHERE estado = 'activo'`,
		// reconciliation cron: activo deposits still waiting for their caja mayor entry
		`CREATE INDEX IF NOT EXISTS idx_depositos_sin_movimiento
		    ON depositos_bancarios (created_at)
		    WHERE estado = 'activo' AND movimiento_id IS NULL`,
		// each uso/devolución and deposit gets at most one entry per kind and
		// currency; retries racing each other fail on this index
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_caja_mayor_referencia
		    ON caja_mayor_movimientos (referencia_tipo, referencia_id, tipo, moneda)
		    WHERE referencia_tipo IN ('uso_devolucion', 'deposito_bancario')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_sesion_abierta_pdv
		    ON sesiones_caja (punto_de_venta)
		    WHERE estado = 'abierta'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
