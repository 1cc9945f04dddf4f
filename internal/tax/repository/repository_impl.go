package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.RateRepository {
	return &repository{db: db}
}

func (r *repository) FindRates(ctx context.Context, q taxdomain.RateQuery) ([]taxdomain.TaxRate, error) {
	stmt := r.db.WithContext(ctx).Model(&taxdomain.TaxRate{})
	if q.IncludeDeleted {
		stmt = stmt.Unscoped()
	}

	if q.Country != "" {
		stmt = stmt.Where("country = ?", q.Country)
	}
	if q.State != "" {
		stmt = stmt.Where("state = ?", q.State)
	}
	if !q.IncludeSellerResponsible {
		stmt = stmt.Where("is_seller_responsible = ?", false)
	}
	if q.Epublication != nil {
		stmt = stmt.Where("is_epublication_rate = ?", *q.Epublication)
	}

	// Creator override rows are only visible to that creator's products.
	switch {
	case q.AnyOwner:
	case q.SellerID != 0:
		stmt = stmt.Where("(user_id IS NULL OR user_id = ?)", q.SellerID).
			Order("CASE WHEN user_id IS NULL THEN 1 ELSE 0 END")
	default:
		stmt = stmt.Where("user_id IS NULL")
	}

	if q.After != nil {
		stmt = stmt.Where("((created_at > ?) OR (created_at = ? AND id > ?))",
			q.After.CreatedAt.UTC(),
			q.After.CreatedAt.UTC(),
			q.After.ID,
		)
	}
	if q.Limit > 0 {
		stmt = stmt.Limit(q.Limit)
	}

	var items []taxdomain.TaxRate
	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*taxdomain.TaxRate, error) {
	var rate taxdomain.TaxRate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) Create(ctx context.Context, rate *taxdomain.TaxRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// Delete soft-deletes the row so it stops being live.
func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&taxdomain.TaxRate{}).Error
}
