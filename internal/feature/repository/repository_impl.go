package repository

import (
	"context"

	"github.com/smallbiznis/salestax/internal/feature/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, flag *domain.Flag) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO feature_flags (id, name, description, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		flag.ID,
		flag.Name,
		flag.Description,
		flag.Active,
		flag.CreatedAt,
		flag.UpdatedAt,
	).Error
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Flag, error) {
	var f domain.Flag
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, active, created_at, updated_at
		 FROM feature_flags WHERE name = ?`,
		name,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Flag, error) {
	var items []domain.Flag
	stmt := db.WithContext(ctx).Model(&domain.Flag{})

	if filter.Prefix != "" {
		stmt = stmt.Where("name LIKE ?", filter.Prefix+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if err := stmt.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, flag *domain.Flag) error {
	if flag == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE feature_flags SET description = ?, active = ?, updated_at = ? WHERE id = ?`,
		flag.Description,
		flag.Active,
		flag.UpdatedAt,
		flag.ID,
	).Error
}
