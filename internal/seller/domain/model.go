package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Account is a payment processor account a seller sells through. When the
// seller is merchant of record on an exempt account, the processor remits
// tax and we collect none.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	SellerID  snowflake.ID `gorm:"column:seller_id;not null;uniqueIndex:ux_seller_accounts_seller_processor,priority:1"`
	Processor string       `gorm:"type:text;not null;uniqueIndex:ux_seller_accounts_seller_processor,priority:2"`
	Country   string       `gorm:"type:char(2);not null"`
	TaxExempt bool         `gorm:"column:tax_exempt;not null;default:false"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Account) TableName() string { return "seller_accounts" }

type Repository interface {
	FindBySellerAndProcessor(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, processor string) (*Account, error)
	HasTaxExempt(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (bool, error)
	Create(ctx context.Context, db *gorm.DB, account *Account) error
	Update(ctx context.Context, db *gorm.DB, account *Account) error
}

type Service interface {
	HasTaxExemptProcessorAccount(ctx context.Context, sellerID snowflake.ID) (bool, error)
	Register(ctx context.Context, req RegisterRequest) (*Response, error)
}

type RegisterRequest struct {
	SellerID  string `json:"seller_id"`
	Processor string `json:"processor"`
	Country   string `json:"country"`
	TaxExempt bool   `json:"tax_exempt"`
}

type Response struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Processor string    `json:"processor"`
	Country   string    `json:"country"`
	TaxExempt bool      `json:"tax_exempt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidSeller    = errors.New("invalid_seller")
	ErrInvalidProcessor = errors.New("invalid_processor")
	ErrInvalidCountry   = errors.New("invalid_country")
)
