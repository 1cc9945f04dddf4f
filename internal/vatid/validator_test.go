package vatid

import (
	"context"
	"testing"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidators(t *testing.T) {
	cases := []struct {
		name      string
		validator taxdomain.VatIDValidator
		id        string
		want      taxdomain.ValidationResult
	}{
		{"abn valid", NewABNValidator(), "51 824 753 556", taxdomain.ValidationValid},
		{"abn bad checksum", NewABNValidator(), "51 824 753 557", taxdomain.ValidationInvalid},
		{"abn short", NewABNValidator(), "5182475355", taxdomain.ValidationInvalid},
		{"sg uen", NewSGGSTValidator(), "200312345A", taxdomain.ValidationValid},
		{"sg m number", NewSGGSTValidator(), "M2-0012345-X", taxdomain.ValidationValid},
		{"sg invalid", NewSGGSTValidator(), "12345", taxdomain.ValidationInvalid},
		{"qst valid", NewQSTValidator(), "1234567890 TQ 0001", taxdomain.ValidationValid},
		{"qst invalid", NewQSTValidator(), "1234567890RT0001", taxdomain.ValidationInvalid},
		{"mva valid", NewMVAValidator(), "923609016", taxdomain.ValidationValid},
		{"mva prefixed", NewMVAValidator(), "NO 923 609 016 MVA", taxdomain.ValidationValid},
		{"mva bad checksum", NewMVAValidator(), "923609017", taxdomain.ValidationInvalid},
		{"kra valid", NewKRAPINValidator(), "P051234567Q", taxdomain.ValidationValid},
		{"kra invalid", NewKRAPINValidator(), "X051234567Q", taxdomain.ValidationInvalid},
		{"bahrain valid", NewBahrainTRNValidator(), "200000898300002", taxdomain.ValidationValid},
		{"oman valid", NewOmanVATValidator(), "OM1100012345", taxdomain.ValidationValid},
		{"oman invalid", NewOmanVATValidator(), "1100012345", taxdomain.ValidationInvalid},
		{"firs valid", NewFIRSTINValidator(), "12345678-0001", taxdomain.ValidationValid},
		{"firs missing dash", NewFIRSTINValidator(), "123456780001", taxdomain.ValidationInvalid},
		{"tra valid", NewTRATINValidator(), "100-200-300", taxdomain.ValidationValid},
		{"india gstin", NewTaxIDValidator("IN"), "27AAPFU0939F1ZV", taxdomain.ValidationValid},
		{"swiss uid", NewTaxIDValidator("CH"), "CHE-123.456.789 MWST", taxdomain.ValidationValid},
		{"malaysia sst", NewTaxIDValidator("MY"), "W10-1808-32000001", taxdomain.ValidationValid},
		{"malaysia invalid", NewTaxIDValidator("MY"), "12345", taxdomain.ValidationInvalid},
		{"unknown country fallback", NewTaxIDValidator("ZZ"), "AB12345", taxdomain.ValidationValid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.validator.Validate(context.Background(), tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type stubChecker struct {
	res    taxdomain.ValidationResult
	err    error
	prefix string
	number string
}

func (s *stubChecker) Check(_ context.Context, prefix, number string) (taxdomain.ValidationResult, error) {
	s.prefix, s.number = prefix, number
	return s.res, s.err
}

func TestEUVATValidator(t *testing.T) {
	ctx := context.Background()

	res, err := NewEUVATValidator("DE", nil).Validate(ctx, "DE 123 456 789")
	require.NoError(t, err)
	assert.Equal(t, taxdomain.ValidationValid, res)

	res, _ = NewEUVATValidator("DE", nil).Validate(ctx, "123456789")
	assert.Equal(t, taxdomain.ValidationValid, res)

	res, _ = NewEUVATValidator("NL", nil).Validate(ctx, "NL123456789")
	assert.Equal(t, taxdomain.ValidationInvalid, res)

	res, _ = NewEUVATValidator("GR", nil).Validate(ctx, "094259216")
	assert.Equal(t, taxdomain.ValidationValid, res)

	res, _ = NewEUVATValidator("CA", nil).Validate(ctx, "123456789")
	assert.Equal(t, taxdomain.ValidationInvalid, res)
}

func TestEUVATValidator_RemoteCheck(t *testing.T) {
	ctx := context.Background()

	checker := &stubChecker{res: taxdomain.ValidationInvalid}
	res, err := NewEUVATValidator("FR", checker).Validate(ctx, "FR40303265045")
	require.NoError(t, err)
	assert.Equal(t, taxdomain.ValidationInvalid, res)
	assert.Equal(t, "FR", checker.prefix)
	assert.Equal(t, "40303265045", checker.number)

	// malformed numbers never reach the registry
	checker = &stubChecker{res: taxdomain.ValidationValid}
	res, _ = NewEUVATValidator("FR", checker).Validate(ctx, "FR1")
	assert.Equal(t, taxdomain.ValidationInvalid, res)
	assert.Empty(t, checker.prefix)

	res, _ = NewEUVATValidator("GB", checker).Validate(ctx, "GB123456789")
	assert.Equal(t, taxdomain.ValidationValid, res)
	assert.Empty(t, checker.prefix)
}

func TestRegistry_For(t *testing.T) {
	policy := taxdomain.StaticPolicy(taxdomain.NewPolicy(taxdomain.PolicyConfig{
		EUVATCountries:                  []string{"DE"},
		TaxAllProductsCountries:         []string{"CH", "KE"},
		TaxDigitalProductsCountries:     []string{"MY", "CO"},
		TaxDigitalIDValidationCountries: []string{"MY"},
	}))
	r := NewRegistry(RegistryParams{Policy: policy})

	assert.Equal(t, "abn", r.For("AU", "").Name())
	assert.Equal(t, "sg_gst", r.For("SG", "").Name())
	assert.Equal(t, "qst", r.For("CA", "QC").Name())
	assert.Equal(t, "eu_vat", r.For("CA", "ON").Name())
	assert.Equal(t, "mva", r.For("NO", "").Name())
	assert.Equal(t, "kra_pin", r.For("KE", "").Name())
	assert.Equal(t, "tax_id_CH", r.For("CH", "").Name())
	assert.Equal(t, "tax_id_MY", r.For("my", "").Name())
	assert.Equal(t, "eu_vat", r.For("CO", "").Name())
	assert.Equal(t, "eu_vat", r.For("DE", "").Name())
}
