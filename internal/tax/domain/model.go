package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Country codes the engine branches on directly.
// Everything else comes from Policy.
const (
	CountryUS = "US"
	CountryCA = "CA"
	CountryAU = "AU"
	CountrySG = "SG"
	CountryNO = "NO"
	CountryES = "ES"

	StateQuebec = "QC"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Product is the purchased item as seen by the tax engine.
type Product struct {
	ID             snowflake.ID `json:"id"`
	SellerID       snowflake.ID `json:"seller_id"`
	Name           string       `json:"name,omitempty"`
	IsPhysical     bool         `json:"is_physical"`
	IsEpublication bool         `json:"is_epublication"`
	// TaxCode is the external tax category code sent to the tax API.
	TaxCode string `json:"tax_code,omitempty"`
}

func (p *Product) Valid() bool {
	return p != nil && p.ID != 0
}

// BuyerLocation is supplied per calculation and never stored.
type BuyerLocation struct {
	Country    string `json:"country" validate:"required,len=2,alpha"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	IPAddress  string `json:"ip_address,omitempty" validate:"omitempty,ip"`
}

// Normalize upper-cases codes and trims whitespace.
func (l BuyerLocation) Normalize() BuyerLocation {
	return BuyerLocation{
		Country:    NormalizeCountry(l.Country),
		State:      strings.ToUpper(strings.TrimSpace(l.State)),
		PostalCode: strings.TrimSpace(l.PostalCode),
		IPAddress:  strings.TrimSpace(l.IPAddress),
	}
}

func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsCountryCode(code string) bool {
	return countryCodePattern.MatchString(code)
}

// TaxRate is a jurisdiction rate row maintained by tax administration.
// Soft-deleted rows are not live and never returned by default queries.
type TaxRate struct {
	ID                  snowflake.ID             `gorm:"primaryKey" json:"id"`
	Country             string                   `gorm:"type:char(2);not null;index:idx_zip_tax_rates_country_state,priority:1" json:"country"`
	State               *string                  `gorm:"type:text;index:idx_zip_tax_rates_country_state,priority:2" json:"state,omitempty"`
	CombinedRate        decimal.Decimal          `gorm:"column:combined_rate;type:numeric(8,6);not null" json:"combined_rate"`
	IsSellerResponsible bool                     `gorm:"column:is_seller_responsible;not null;default:false" json:"is_seller_responsible"`
	IsEpublicationRate  bool                     `gorm:"column:is_epublication_rate;not null;default:false" json:"is_epublication_rate"`
	ApplicableYears     datatypes.JSONSlice[int] `gorm:"column:applicable_years;type:json" json:"applicable_years,omitempty"`
	UserID              *snowflake.ID            `gorm:"column:user_id;index" json:"user_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TaxRate) TableName() string { return "zip_tax_rates" }

func (r *TaxRate) Validate() error {
	if !IsCountryCode(r.Country) {
		return ErrInvalidCountry
	}
	if r.CombinedRate.IsNegative() || r.CombinedRate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidTaxRate
	}
	return nil
}

func (r *TaxRate) StateCode() string {
	if r == nil || r.State == nil {
		return ""
	}
	return *r.State
}

// IsApplicableIn reports whether the rate lists year among its applicable years.
func (r *TaxRate) IsApplicableIn(year int) bool {
	return slices.Contains(r.ApplicableYears, year)
}

// MaxApplicableYear returns 0 for rates without year versioning.
func (r *TaxRate) MaxApplicableYear() int {
	if len(r.ApplicableYears) == 0 {
		return 0
	}
	return slices.Max(r.ApplicableYears)
}

// IsCreatorOverride reports whether the rate belongs to a single creator.
func (r *TaxRate) IsCreatorOverride() bool {
	return r.UserID != nil && *r.UserID != 0
}

// RateQuery filters the rate lookup table. Empty State means any state.
// Nil Epublication means either flag.
type RateQuery struct {
	Country                  string
	State                    string
	Epublication             *bool
	SellerID                 snowflake.ID
	IncludeSellerResponsible bool
	IncludeDeleted           bool
	// AnyOwner disables the creator-override filter; used by administration.
	AnyOwner bool
	// After and Limit page through administration listings in
	// (created_at, id) order.
	After *RateCursor
	Limit int
}

// RateCursor is the last row of the previous page.
type RateCursor struct {
	CreatedAt time.Time
	ID        snowflake.ID
}

// Follows reports whether r sorts after the cursor.
func (c RateCursor) Follows(r *TaxRate) bool {
	if r.CreatedAt.Equal(c.CreatedAt) {
		return r.ID > c.ID
	}
	return r.CreatedAt.After(c.CreatedAt)
}

// Address is a postal address understood by the tax API.
type Address struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Street  string `json:"street,omitempty"`
}

// TaxAPIRequest is one order sent to the third-party tax API.
type TaxAPIRequest struct {
	Origin         Address
	Destination    Address
	Nexus          Address
	Quantity       int64
	ProductTaxCode string
	UnitPrice      decimal.Decimal
	Shipping       decimal.Decimal
}

// TaxJarBreakdown is the per-jurisdiction split returned by the tax API.
type TaxJarBreakdown struct {
	CombinedTaxRate decimal.Decimal `json:"combined_tax_rate"`
	StateTaxRate    decimal.Decimal `json:"state_tax_rate"`
	CountyTaxRate   decimal.Decimal `json:"county_tax_rate"`
	CityTaxRate     decimal.Decimal `json:"city_tax_rate"`
	SpecialTaxRate  decimal.Decimal `json:"special_tax_rate"`
	GSTRate         decimal.Decimal `json:"gst_tax_rate"`
	PSTRate         decimal.Decimal `json:"pst_tax_rate"`
	QSTRate         decimal.Decimal `json:"qst_tax_rate"`

	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	County  string `json:"county,omitempty"`
	City    string `json:"city,omitempty"`
}

// TaxJarResponse lives only for the duration of one calculation.
type TaxJarResponse struct {
	Rate            decimal.Decimal
	AmountToCollect decimal.Decimal
	HasNexus        bool
	FreightTaxable  bool
	Breakdown       *TaxJarBreakdown
}

// GeoLocation is the result of an IP lookup.
type GeoLocation struct {
	CountryCode  string
	Subdivisions []string
}
