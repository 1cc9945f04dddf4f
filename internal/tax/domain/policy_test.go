package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestPolicy_Lookups(t *testing.T) {
	p := testPolicy()

	assert.True(t, p.IsEUVATCountry("de"))
	assert.True(t, p.IsEUVATCountry(" FR "))
	assert.False(t, p.IsEUVATCountry("US"))
	assert.True(t, p.IsGSTCountry("SG"))
	assert.True(t, p.IsNorway("NO"))
	assert.True(t, p.TaxesAllProducts("CH"))
	assert.True(t, p.TaxesDigitalProducts("MY"))
	assert.True(t, p.IsTaxableUSState("ca"))
	assert.False(t, p.IsTaxableUSState("OR"))
	assert.True(t, p.IsCanaryIslandsSubdivision("LAS PALMAS"))
	assert.True(t, p.IsCanaryIslandsSubdivision("GC"))
	assert.False(t, p.IsCanaryIslandsSubdivision("Madrid"))
}

func TestPolicy_CollectsVatID(t *testing.T) {
	p := testPolicy()
	for _, code := range []string{"DE", "AU", "NO", "CH", "MY"} {
		assert.True(t, p.CollectsVatID(code), code)
	}
	for _, code := range []string{"US", "CA", "BR"} {
		assert.False(t, p.CollectsVatID(code), code)
	}
}

func TestStaticPolicy(t *testing.T) {
	src := StaticPolicy(testPolicy())
	assert.True(t, src.Policy().IsGSTCountry("AU"))
}

func TestTaxRate_Years(t *testing.T) {
	r := &TaxRate{Country: "SG", ApplicableYears: datatypes.JSONSlice[int]{2023, 2024}}
	assert.True(t, r.IsApplicableIn(2024))
	assert.False(t, r.IsApplicableIn(2025))
	assert.Equal(t, 2024, r.MaxApplicableYear())
	assert.Equal(t, 0, (&TaxRate{}).MaxApplicableYear())
}

func TestBuyerLocation_Normalize(t *testing.T) {
	loc := BuyerLocation{Country: " us ", State: "ca", PostalCode: " 94104 ", IPAddress: " 10.0.0.1"}.Normalize()
	assert.Equal(t, BuyerLocation{Country: "US", State: "CA", PostalCode: "94104", IPAddress: "10.0.0.1"}, loc)
}
