package repository

import (
	"context"

	"sistema-servicios/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BancoRepository interface {
	CreateBanco(ctx context.Context, b *model.Banco) error
	FindBancoByID(ctx context.Context, id uuid.UUID) (*model.Banco, error)
	ListBancos(ctx context.Context) ([]model.Banco, error)
	CreateCuenta(ctx context.Context, c *model.CuentaBancaria) error
	FindCuentaByID(ctx context.Context, id uuid.UUID) (*model.CuentaBancaria, error)
	ListCuentas(ctx context.Context, bancoID *uuid.UUID) ([]model.CuentaBancaria, error)
}

type bancoRepo struct{ db *gorm.DB }

func NewBancoRepository(db *gorm.DB) BancoRepository { return &bancoRepo{db: db} }

func (r *bancoRepo) CreateBanco(ctx context.Context, b *model.Banco) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *bancoRepo) FindBancoByID(ctx context.Context, id uuid.UUID) (*model.Banco, error) {
	var b model.Banco
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	return &b, err
}

func (r *bancoRepo) ListBancos(ctx context.Context) ([]model.Banco, error) {
	var bancos []model.Banco
	err := r.db.WithContext(ctx).Where("activo = ?", true).Order("nombre ASC").Find(&bancos).Error
	return bancos, err
}

func (r *bancoRepo) CreateCuenta(ctx context.Context, c *model.CuentaBancaria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *bancoRepo) FindCuentaByID(ctx context.Context, id uuid.UUID) (*model.CuentaBancaria, error) {
	var c model.CuentaBancaria
	err := r.db.WithContext(ctx).Preload("Banco").Where("id = ?", id).First(&c).Error
	return &c, err
}

func (r *bancoRepo) ListCuentas(ctx context.Context, bancoID *uuid.UUID) ([]model.CuentaBancaria, error) {
	var cuentas []model.CuentaBancaria
	q := r.db.WithContext(ctx).Preload("Banco").Where("activo = ?", true)
	if bancoID != nil {
		q = q.Where("banco_id = ?", *bancoID)
	}
	err := q.Order("numero_cuenta ASC").Find(&cuentas).Error
	return cuentas, err
}
