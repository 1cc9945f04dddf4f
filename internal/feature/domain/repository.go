package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, flag *Flag) error
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Flag, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Flag, error)
	Update(ctx context.Context, db *gorm.DB, flag *Flag) error
}
