package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salestax/pkg/db/pagination"
)

// RateRepository reads and maintains the jurisdiction rate table.
// Unless the query says otherwise, only live rows that are not seller
// responsible are returned, creator overrides first, then oldest first.
type RateRepository interface {
	FindRates(ctx context.Context, q RateQuery) ([]TaxRate, error)
	FindByID(ctx context.Context, id snowflake.ID) (*TaxRate, error)
	Create(ctx context.Context, rate *TaxRate) error
	Delete(ctx context.Context, id snowflake.ID) error
}

// TaxAPI is the third-party tax rate service used for US and Canada.
// Failures are returned as *TaxAPIError.
type TaxAPI interface {
	TaxForOrder(ctx context.Context, req TaxAPIRequest) (*TaxJarResponse, error)
}

// ValidationResult is the tri-state outcome of a VAT/tax ID check.
type ValidationResult string

const (
	ValidationValid     ValidationResult = "valid"
	ValidationInvalid   ValidationResult = "invalid"
	ValidationUnchecked ValidationResult = "unchecked"
)

// VatIDValidator checks one country's business tax identifier scheme.
type VatIDValidator interface {
	Name() string
	Validate(ctx context.Context, id string) (ValidationResult, error)
}

// VatIDValidatorRegistry picks the validator for a buyer jurisdiction.
type VatIDValidatorRegistry interface {
	For(country, state string) VatIDValidator
}

// FeatureFlags answers boolean feature queries such as collect_tax_<cc>.
type FeatureFlags interface {
	IsActive(ctx context.Context, name string) (bool, error)
}

// GeoLocator resolves an IP address. Expected lookup failures wrap ErrGeoLookupFailed.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (*GeoLocation, error)
}

// ZipStateLookup maps a US postal code to its two-letter state code.
type ZipStateLookup interface {
	StateForZip(zip string) (string, bool)
}

// SellerAccounts answers seller-level exemptions.
type SellerAccounts interface {
	HasTaxExemptProcessorAccount(ctx context.Context, sellerID snowflake.ID) (bool, error)
}

type Clock interface {
	Now() time.Time
}

// CalculateRequest is the purchase pipeline's input.
type CalculateRequest struct {
	Product       *Product      `json:"product"`
	Price         int64         `json:"price_cents"`
	ShippingCost  int64         `json:"shipping_cents"`
	Quantity      int64         `json:"quantity"`
	BuyerLocation BuyerLocation `json:"buyer_location"`
	BuyerVatID    string        `json:"business_vat_id,omitempty"`
}

// Service is the in-process entry point used by purchase processing and the HTTP adapter.
type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*Calculation, error)
	Policy() Policy

	CreateRate(ctx context.Context, req CreateRateRequest) (*RateResponse, error)
	ListRates(ctx context.Context, req ListRatesRequest) (*ListRatesResponse, error)
	DeleteRate(ctx context.Context, id string) error
}

type CreateRateRequest struct {
	Country             string  `json:"country"`
	State               *string `json:"state,omitempty"`
	CombinedRate        string  `json:"combined_rate"`
	IsSellerResponsible bool    `json:"is_seller_responsible"`
	IsEpublicationRate  bool    `json:"is_epublication_rate"`
	ApplicableYears     []int   `json:"applicable_years,omitempty"`
	UserID              *string `json:"user_id,omitempty"`
}

type ListRatesRequest struct {
	pagination.Pagination
	Country                  string `form:"country"`
	State                    string `form:"state"`
	IncludeSellerResponsible bool   `form:"include_seller_responsible"`
}

type ListRatesResponse struct {
	Rates    []RateResponse       `json:"rates"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type RateResponse struct {
	ID                  string          `json:"id"`
	Country             string          `json:"country"`
	State               *string         `json:"state,omitempty"`
	CombinedRate        decimal.Decimal `json:"combined_rate"`
	IsSellerResponsible bool            `json:"is_seller_responsible"`
	IsEpublicationRate  bool            `json:"is_epublication_rate"`
	ApplicableYears     []int           `json:"applicable_years,omitempty"`
	UserID              *string         `json:"user_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (r *TaxRate) ToResponse() RateResponse {
	resp := RateResponse{
		ID:                  r.ID.String(),
		Country:             r.Country,
		State:               r.State,
		CombinedRate:        r.CombinedRate,
		IsSellerResponsible: r.IsSellerResponsible,
		IsEpublicationRate:  r.IsEpublicationRate,
		ApplicableYears:     []int(r.ApplicableYears),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.UserID != nil {
		owner := r.UserID.String()
		resp.UserID = &owner
	}
	return resp
}
