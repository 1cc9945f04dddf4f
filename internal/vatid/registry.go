package vatid

import (
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

type RegistryParams struct {
	fx.In

	Policy  taxdomain.PolicySource
	Checker Checker `optional:"true"`
}

// Registry picks the identifier scheme for a buyer jurisdiction.
type Registry struct {
	policy    taxdomain.PolicySource
	checker   Checker
	byCountry map[string]taxdomain.VatIDValidator
	qst       taxdomain.VatIDValidator
}

func NewRegistry(p RegistryParams) *Registry {
	return &Registry{
		policy:  p.Policy,
		checker: p.Checker,
		qst:     NewQSTValidator(),
		byCountry: map[string]taxdomain.VatIDValidator{
			taxdomain.CountryAU: NewABNValidator(),
			taxdomain.CountrySG: NewSGGSTValidator(),
			taxdomain.CountryNO: NewMVAValidator(),
			"KE":                NewKRAPINValidator(),
			"BH":                NewBahrainTRNValidator(),
			"OM":                NewOmanVATValidator(),
			"NG":                NewFIRSTINValidator(),
			"TZ":                NewTRATINValidator(),
		},
	}
}

func (r *Registry) For(country, state string) taxdomain.VatIDValidator {
	country = taxdomain.NormalizeCountry(country)
	if country == taxdomain.CountryCA && state == taxdomain.StateQuebec {
		return r.qst
	}
	if v, ok := r.byCountry[country]; ok {
		return v
	}

	policy := r.policy.Policy()
	if policy.TaxesAllProducts(country) || policy.ValidatesDigitalTaxID(country) {
		return NewTaxIDValidator(country)
	}
	return NewEUVATValidator(country, r.checker)
}
