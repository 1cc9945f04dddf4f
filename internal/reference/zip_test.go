package reference

import (
	"testing"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/stretchr/testify/assert"
)

func TestZipTable_StateForZip(t *testing.T) {
	table := DefaultZipTable()

	cases := map[string]string{
		"94104":      "CA",
		"94104-1234": "CA",
		"10001":      "NY",
		"00501":      "NY",
		"06390":      "NY",
		"06101":      "CT",
		"05501":      "MA",
		"05401":      "VT",
		"73301":      "TX",
		"73101":      "OK",
		"88510":      "TX",
		"83414":      "WY",
		"83702":      "ID",
		"20500":      "DC",
		"99501":      "AK",
	}
	for zip, want := range cases {
		state, ok := table.StateForZip(zip)
		assert.True(t, ok, zip)
		assert.Equal(t, want, state, zip)
	}

	for _, zip := range []string{"", "9410", "ABCDE", "00100", "96950", "+1234", "-1234", " 123", "1_234", "9410a"} {
		_, ok := table.StateForZip(zip)
		assert.False(t, ok, zip)
	}
}

func TestCanadianProvinces(t *testing.T) {
	assert.Len(t, CanadianProvinces(), 13)
	assert.True(t, IsCanadianProvince("qc"))
	assert.False(t, IsCanadianProvince("ZZ"))
}

func TestDefaultPolicyConfig(t *testing.T) {
	p := taxdomain.NewPolicy(DefaultPolicyConfig())

	assert.True(t, p.IsEUVATCountry("DE"))
	assert.True(t, p.IsEUVATCountry("GB"))
	assert.True(t, p.IsGSTCountry("AU"))
	assert.True(t, p.IsNorway("NO"))
	assert.True(t, p.TaxesAllProducts("CH"))
	assert.True(t, p.IsSpecialEpublicationCountry("MX"))
	assert.True(t, p.TaxesDigitalProducts("MY"))
	assert.True(t, p.IsTaxableUSState("CA"))
	assert.False(t, p.IsTaxableUSState("OR"))
	assert.True(t, p.IsCanaryIslandsSubdivision("Santa Cruz de Tenerife"))
	assert.Equal(t, "94104", p.Origin().Zip)
}
