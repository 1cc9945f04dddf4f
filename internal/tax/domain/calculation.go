package domain

import "github.com/shopspring/decimal"

// VatStatus records what happened to a buyer-supplied business VAT/tax ID.
type VatStatus string

const (
	VatStatusNone    VatStatus = ""
	VatStatusValid   VatStatus = "valid"
	VatStatusInvalid VatStatus = "invalid"
)

// Reason names the pipeline step that produced a calculation.
type Reason string

const (
	ReasonFreeTransaction Reason = "free_transaction"
	ReasonSellerExempt    Reason = "seller_exempt"
	ReasonBusinessVat     Reason = "business_vat"
	ReasonTaxAPI          Reason = "tax_api"
	ReasonRate            Reason = "rate"
	ReasonNoRate          Reason = "no_rate"
	ReasonNotEligible     Reason = "not_eligible"
)

// Calculation is the immutable outcome of one tax determination.
// Price is in minor currency units; Tax keeps decimal precision in minor units.
// A positive Tax always comes with Rate or UsedTaxAPI.
type Calculation struct {
	Price                    int64
	Tax                      decimal.Decimal
	Rate                     *TaxRate
	VatStatus                VatStatus
	UsedTaxAPI               bool
	IsMarketplaceFacilitator bool
	Breakdown                *TaxJarBreakdown
	IsQuebec                 bool
	Reason                   Reason
}

// CalculationParams holds the optional fields of NewCalculation.
type CalculationParams struct {
	VatStatus                VatStatus
	UsedTaxAPI               bool
	IsMarketplaceFacilitator bool
	Breakdown                *TaxJarBreakdown
	IsQuebec                 bool
	Reason                   Reason
}

func NewCalculation(price int64, tax decimal.Decimal, rate *TaxRate, p CalculationParams) *Calculation {
	return &Calculation{
		Price:                    price,
		Tax:                      tax,
		Rate:                     rate,
		VatStatus:                p.VatStatus,
		UsedTaxAPI:               p.UsedTaxAPI,
		IsMarketplaceFacilitator: p.IsMarketplaceFacilitator,
		Breakdown:                p.Breakdown,
		IsQuebec:                 p.IsQuebec,
		Reason:                   p.Reason,
	}
}

// ZeroTax is the result whenever the sale is not taxable.
func ZeroTax(price int64) *Calculation {
	return &Calculation{Price: price, Tax: decimal.Zero}
}

// ZeroBusinessVat is the reverse-charge result for a verified business ID.
func ZeroBusinessVat(price int64) *Calculation {
	return &Calculation{
		Price:     price,
		Tax:       decimal.Zero,
		VatStatus: VatStatusValid,
		Reason:    ReasonBusinessVat,
	}
}

func (c *Calculation) withReason(reason Reason) *Calculation {
	c.Reason = reason
	return c
}

// ZeroTaxFor is ZeroTax annotated with the step that short-circuited.
func ZeroTaxFor(price int64, reason Reason) *Calculation {
	return ZeroTax(price).withReason(reason)
}

// TaxCents rounds the tax to whole minor units, half away from zero.
func (c *Calculation) TaxCents() int64 {
	return c.Tax.Round(0).IntPart()
}

// HasVatIDInput reports whether the buyer should be offered a VAT/tax ID field.
func (c *Calculation) HasVatIDInput(p Policy) bool {
	if c.IsQuebec {
		return true
	}
	if c.Rate == nil {
		return false
	}
	return p.CollectsVatID(c.Rate.Country)
}

// Summary is the receipt/record view of a calculation.
type Summary struct {
	Price         int64            `json:"price_cents"`
	Tax           decimal.Decimal  `json:"tax_cents"`
	VatStatus     VatStatus        `json:"business_vat_status,omitempty"`
	HasVatIDInput bool             `json:"has_vat_id_input"`
	Breakdown     *TaxJarBreakdown `json:"tax_api_breakdown,omitempty"`
}

func (c *Calculation) ToSummary(p Policy) Summary {
	return Summary{
		Price:         c.Price,
		Tax:           c.Tax,
		VatStatus:     c.VatStatus,
		HasVatIDInput: c.HasVatIDInput(p),
		Breakdown:     c.Breakdown,
	}
}
