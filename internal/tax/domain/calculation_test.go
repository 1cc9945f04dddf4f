package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testPolicy() Policy {
	return NewPolicy(PolicyConfig{
		EUVATCountries:              []string{"DE", "FR"},
		GSTCountries:                []string{"AU", "SG"},
		NorwayCountries:             []string{"NO"},
		TaxAllProductsCountries:     []string{"CH"},
		TaxDigitalProductsCountries: []string{"MY"},
		TaxableUSStates:             []string{"CA"},
		CanaryIslandsSubdivisions:   []string{"Las Palmas", "gc"},
	})
}

func TestCalculation_HasVatIDInput(t *testing.T) {
	p := testPolicy()

	cases := []struct {
		name string
		calc *Calculation
		want bool
	}{
		{name: "no rate", calc: ZeroTax(100), want: false},
		{name: "eu rate", calc: NewCalculation(100, decimal.NewFromInt(19), &TaxRate{Country: "DE"}, CalculationParams{}), want: true},
		{name: "gst rate", calc: NewCalculation(100, decimal.NewFromInt(10), &TaxRate{Country: "AU"}, CalculationParams{}), want: true},
		{name: "flagged country rate", calc: NewCalculation(100, decimal.NewFromInt(8), &TaxRate{Country: "CH"}, CalculationParams{}), want: true},
		{name: "us rate", calc: NewCalculation(100, decimal.NewFromInt(8), &TaxRate{Country: "US"}, CalculationParams{}), want: false},
		{name: "quebec via tax api", calc: NewCalculation(100, decimal.NewFromInt(15), nil, CalculationParams{UsedTaxAPI: true, IsQuebec: true}), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.calc.HasVatIDInput(p))
		})
	}
}

func TestCalculation_TaxCentsRoundsHalfAwayFromZero(t *testing.T) {
	calc := NewCalculation(999, decimal.RequireFromString("82.5"), &TaxRate{Country: "US"}, CalculationParams{})
	assert.Equal(t, int64(83), calc.TaxCents())

	calc = NewCalculation(999, decimal.RequireFromString("82.49"), &TaxRate{Country: "US"}, CalculationParams{})
	assert.Equal(t, int64(82), calc.TaxCents())
}

func TestZeroResults(t *testing.T) {
	zero := ZeroTax(500)
	assert.True(t, zero.Tax.IsZero())
	assert.Nil(t, zero.Rate)
	assert.Equal(t, VatStatusNone, zero.VatStatus)

	business := ZeroBusinessVat(500)
	assert.True(t, business.Tax.IsZero())
	assert.Equal(t, VatStatusValid, business.VatStatus)
	assert.Equal(t, ReasonBusinessVat, business.Reason)

	assert.Equal(t, ReasonNoRate, ZeroTaxFor(500, ReasonNoRate).Reason)
}

func TestCalculation_ToSummary(t *testing.T) {
	breakdown := &TaxJarBreakdown{CombinedTaxRate: decimal.RequireFromString("0.0825")}
	calc := NewCalculation(10000, decimal.NewFromInt(825), nil, CalculationParams{
		UsedTaxAPI: true,
		Breakdown:  breakdown,
		VatStatus:  VatStatusInvalid,
	})

	summary := calc.ToSummary(testPolicy())
	assert.Equal(t, int64(10000), summary.Price)
	assert.True(t, summary.Tax.Equal(decimal.NewFromInt(825)))
	assert.Equal(t, VatStatusInvalid, summary.VatStatus)
	assert.False(t, summary.HasVatIDInput)
	assert.Same(t, breakdown, summary.Breakdown)
}

func TestTaxAPIError_Class(t *testing.T) {
	client := &TaxAPIError{StatusCode: 422, Message: "invalid zip"}
	assert.True(t, client.IsClientError())
	assert.Equal(t, "client", client.Class())

	server := &TaxAPIError{StatusCode: 503}
	assert.True(t, server.IsServerError())
	assert.Equal(t, "server", server.Class())

	transport := &TaxAPIError{Err: errors.New("dial tcp: timeout")}
	assert.True(t, transport.IsServerError())
	assert.ErrorContains(t, transport, "timeout")
}
