package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salestax/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/smallbiznis/salestax/pkg/masking"
	"go.uber.org/zap"
)

var inputValidator = validator.New(validator.WithRequiredStructEnabled())

// Dependencies are the collaborators a Calculator consults.
// TaxAPI, Geo and Sellers are optional.
type Dependencies struct {
	Rates      taxdomain.RateRepository
	TaxAPI     taxdomain.TaxAPI
	Validators taxdomain.VatIDValidatorRegistry
	Flags      taxdomain.FeatureFlags
	Geo        taxdomain.GeoLocator
	Zips       taxdomain.ZipStateLookup
	Sellers    taxdomain.SellerAccounts
	Clock      taxdomain.Clock
	Policy     taxdomain.Policy
	Log        *zap.Logger
	Metrics    *metrics.TaxMetrics
}

// CalculatorInput is one purchase to determine tax for.
type CalculatorInput struct {
	Product       *taxdomain.Product      `validate:"required"`
	Price         int64                   `validate:"gte=0"`
	ShippingCost  int64                   `validate:"gte=0"`
	Quantity      int64                   `validate:"gte=1"`
	BuyerLocation taxdomain.BuyerLocation `validate:"required"`
	BuyerVatID    string
}

// Calculator decides tax for a single purchase. It is single use and
// its derived jurisdiction fields never change after construction.
type Calculator struct {
	deps  Dependencies
	input CalculatorInput

	state            string
	isUSTaxableState bool
	isCATaxable      bool
	isQuebec         bool
}

type strategy func(ctx context.Context) (*taxdomain.Calculation, error)

// NewCalculator validates the input and derives the buyer jurisdiction.
// A zero Quantity defaults to 1.
func NewCalculator(deps Dependencies, input CalculatorInput) (*Calculator, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	input.BuyerLocation = input.BuyerLocation.Normalize()
	input.BuyerVatID = strings.TrimSpace(input.BuyerVatID)

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if deps.Rates == nil || deps.Validators == nil || deps.Zips == nil || deps.Clock == nil {
		return nil, errors.New("tax calculator dependencies are incomplete")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	c := &Calculator{deps: deps, input: input}
	loc := input.BuyerLocation
	switch loc.Country {
	case taxdomain.CountryUS:
		if state, ok := deps.Zips.StateForZip(loc.PostalCode); ok {
			c.state = state
		}
	case taxdomain.CountryCA:
		c.state = loc.State
	}

	c.isUSTaxableState = loc.Country == taxdomain.CountryUS && c.state != "" && deps.Policy.IsTaxableUSState(c.state)
	c.isCATaxable = loc.Country == taxdomain.CountryCA && c.state != ""
	c.isQuebec = c.isCATaxable && c.state == taxdomain.StateQuebec
	return c, nil
}

func validateInput(input CalculatorInput) error {
	if !input.Product.Valid() {
		return taxdomain.NewValidationError(taxdomain.ErrInvalidProduct, taxdomain.FieldError{
			Field: "product", Code: taxdomain.ErrInvalidProduct.Error(), Message: "product is required",
		})
	}

	err := inputValidator.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return taxdomain.NewValidationError(err)
	}

	fields := make([]taxdomain.FieldError, 0, len(verrs))
	var cause error
	for _, fe := range verrs {
		sentinel := sentinelForField(fe.StructNamespace())
		if cause == nil {
			cause = sentinel
		}
		fields = append(fields, taxdomain.FieldError{
			Field:   fieldName(fe.StructNamespace()),
			Code:    sentinel.Error(),
			Message: fmt.Sprintf("failed %s validation", fe.Tag()),
		})
	}
	return taxdomain.NewValidationError(cause, fields...)
}

func sentinelForField(namespace string) error {
	switch {
	case strings.HasSuffix(namespace, ".Price"):
		return taxdomain.ErrInvalidPrice
	case strings.HasSuffix(namespace, ".ShippingCost"):
		return taxdomain.ErrInvalidShippingCost
	case strings.HasSuffix(namespace, ".Quantity"):
		return taxdomain.ErrInvalidQuantity
	case strings.Contains(namespace, ".BuyerLocation"):
		return taxdomain.ErrInvalidBuyerLocation
	default:
		return taxdomain.ErrInvalidProduct
	}
}

func fieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Calculator) State() string          { return c.state }
func (c *Calculator) IsUSTaxableState() bool { return c.isUSTaxableState }
func (c *Calculator) IsCATaxable() bool      { return c.isCATaxable }
func (c *Calculator) IsQuebec() bool         { return c.isQuebec }

// Calculate runs the pipeline; the first step that yields a result wins.
// Errors are only returned for failures of the rate store, seller lookup
// or unexpected collaborator errors.
func (c *Calculator) Calculate(ctx context.Context) (*taxdomain.Calculation, error) {
	steps := []strategy{
		c.freeTransaction,
		c.sellerExemption,
		c.businessVatExemption,
		c.taxAPICalculation,
		c.rateTableCalculation,
	}
	for _, step := range steps {
		calc, err := step(ctx)
		if err != nil {
			return nil, err
		}
		if calc != nil {
			return calc, nil
		}
	}
	return taxdomain.ZeroTaxFor(c.input.Price, taxdomain.ReasonNoRate), nil
}

func (c *Calculator) freeTransaction(ctx context.Context) (*taxdomain.Calculation, error) {
	if c.input.Price != 0 {
		return nil, nil
	}
	return taxdomain.ZeroTaxFor(c.input.Price, taxdomain.ReasonFreeTransaction), nil
}

func (c *Calculator) sellerExemption(ctx context.Context) (*taxdomain.Calculation, error) {
	if c.deps.Sellers == nil {
		return nil, nil
	}
	exempt, err := c.deps.Sellers.HasTaxExemptProcessorAccount(ctx, c.input.Product.SellerID)
	if err != nil {
		return nil, fmt.Errorf("seller exemption lookup: %w", err)
	}
	if !exempt {
		return nil, nil
	}
	return taxdomain.ZeroTaxFor(c.input.Price, taxdomain.ReasonSellerExempt), nil
}

func (c *Calculator) businessVatExemption(ctx context.Context) (*taxdomain.Calculation, error) {
	if c.validateVatID(ctx) != taxdomain.ValidationValid {
		return nil, nil
	}
	return taxdomain.ZeroBusinessVat(c.input.Price), nil
}

func (c *Calculator) validateVatID(ctx context.Context) taxdomain.ValidationResult {
	id := c.input.BuyerVatID
	if id == "" {
		return taxdomain.ValidationUnchecked
	}

	v := c.deps.Validators.For(c.input.BuyerLocation.Country, c.state)
	if v == nil {
		return taxdomain.ValidationUnchecked
	}

	result, err := v.Validate(ctx, id)
	if err != nil {
		c.deps.Log.Warn("vat id validation failed, treating as unchecked",
			zap.String("validator", v.Name()),
			zap.String("country", c.input.BuyerLocation.Country),
			zap.String("vat_id", masking.MaskSecret(id)),
			zap.Error(err),
		)
		result = taxdomain.ValidationUnchecked
	}
	c.deps.Metrics.IncVatValidation(v.Name(), string(result))
	return result
}

func (c *Calculator) vatStatusForTaxedSale() taxdomain.VatStatus {
	if c.input.BuyerVatID != "" {
		return taxdomain.VatStatusInvalid
	}
	return taxdomain.VatStatusNone
}

func (c *Calculator) taxAPICalculation(ctx context.Context) (*taxdomain.Calculation, error) {
	if c.deps.TaxAPI == nil || !(c.isUSTaxableState || c.isCATaxable) {
		return nil, nil
	}

	loc := c.input.BuyerLocation
	destination := taxdomain.Address{Country: loc.Country, State: c.state}
	if loc.Country == taxdomain.CountryUS {
		destination.Zip = loc.PostalCode
	}

	quantity := decimal.NewFromInt(c.input.Quantity)
	req := taxdomain.TaxAPIRequest{
		Origin:         c.deps.Policy.Origin(),
		Destination:    destination,
		Nexus:          destination,
		Quantity:       c.input.Quantity,
		ProductTaxCode: c.input.Product.TaxCode,
		UnitPrice:      decimal.New(c.input.Price, -2).Div(quantity),
		Shipping:       decimal.New(c.input.ShippingCost, -2),
	}

	resp, err := c.deps.TaxAPI.TaxForOrder(ctx, req)
	if err != nil {
		var apiErr *taxdomain.TaxAPIError
		if errors.As(err, &apiErr) {
			c.deps.Log.Warn("tax api unavailable, falling back to rate table",
				zap.String("class", apiErr.Class()),
				zap.Int("status", apiErr.StatusCode),
				zap.Error(err),
			)
			c.deps.Metrics.IncTaxAPIFailure(apiErr.Class())
			return nil, nil
		}
		return nil, fmt.Errorf("tax api: %w", err)
	}
	if resp == nil {
		return nil, nil
	}

	tax := resp.AmountToCollect.Mul(decimal.NewFromInt(100)).Round(0)
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	return taxdomain.NewCalculation(c.input.Price, tax, nil, taxdomain.CalculationParams{
		VatStatus:                c.vatStatusForTaxedSale(),
		UsedTaxAPI:               true,
		IsMarketplaceFacilitator: c.isUSTaxableState || c.isCATaxable,
		Breakdown:                resp.Breakdown,
		IsQuebec:                 c.isQuebec,
		Reason:                   taxdomain.ReasonTaxAPI,
	}), nil
}

func (c *Calculator) rateTableCalculation(ctx context.Context) (*taxdomain.Calculation, error) {
	rate, err := c.resolveRate(ctx)
	if err != nil {
		return nil, err
	}
	if rate != nil {
		exempt, err := c.isVatExemptTerritory(ctx, rate)
		if err != nil {
			return nil, err
		}
		if exempt {
			rate = nil
		}
	}

	price := c.input.Price
	if rate == nil {
		return taxdomain.ZeroTaxFor(price, taxdomain.ReasonNoRate), nil
	}

	if !c.isEligible(ctx, rate) {
		return taxdomain.ZeroTaxFor(price, taxdomain.ReasonNotEligible), nil
	}

	tax := decimal.NewFromInt(price).Mul(rate.CombinedRate)
	return taxdomain.NewCalculation(price, tax, rate, taxdomain.CalculationParams{
		VatStatus: c.vatStatusForTaxedSale(),
		IsQuebec:  c.isQuebec,
		Reason:    taxdomain.ReasonRate,
	}), nil
}

// isVatExemptTerritory applies the Canary Islands carve-out to Spanish rates.
// Only expected lookup failures are ignored.
func (c *Calculator) isVatExemptTerritory(ctx context.Context, rate *taxdomain.TaxRate) (bool, error) {
	if rate.Country != taxdomain.CountryES || c.deps.Geo == nil {
		return false, nil
	}
	ip := c.input.BuyerLocation.IPAddress
	if ip == "" {
		return false, nil
	}

	loc, err := c.deps.Geo.Locate(ctx, ip)
	if err != nil {
		if errors.Is(err, taxdomain.ErrGeoLookupFailed) {
			c.deps.Log.Warn("ip geolocation failed, assuming mainland spain", zap.Error(err))
			c.deps.Metrics.IncGeoLookupFailure()
			return false, nil
		}
		return false, fmt.Errorf("geolocate buyer: %w", err)
	}
	if loc == nil || taxdomain.NormalizeCountry(loc.CountryCode) != taxdomain.CountryES {
		return false, nil
	}
	for _, sub := range loc.Subdivisions {
		if c.deps.Policy.IsCanaryIslandsSubdivision(sub) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Calculator) flagActive(ctx context.Context, country string) bool {
	if c.deps.Flags == nil {
		return false
	}
	name := CollectTaxFlag(country)
	active, err := c.deps.Flags.IsActive(ctx, name)
	if err != nil {
		c.deps.Log.Warn("feature flag lookup failed, treating as inactive",
			zap.String("flag", name),
			zap.Error(err),
		)
		c.deps.Metrics.IncFeatureFlagError(name)
		return false
	}
	return active
}

// CollectTaxFlag is the feature flag gating tax collection for a country.
func CollectTaxFlag(country string) string {
	return "collect_tax_" + strings.ToLower(strings.TrimSpace(country))
}
