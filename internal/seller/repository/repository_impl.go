package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestax/internal/seller/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBySellerAndProcessor(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, processor string) (*domain.Account, error) {
	var acct domain.Account
	err := db.WithContext(ctx).
		Where("seller_id = ? AND processor = ?", sellerID, processor).
		First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acct, nil
}

func (r *repo) HasTaxExempt(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("seller_id = ? AND tax_exempt = ?", sellerID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	if account == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"country":    account.Country,
			"tax_exempt": account.TaxExempt,
			"updated_at": account.UpdatedAt,
		}).Error
}
