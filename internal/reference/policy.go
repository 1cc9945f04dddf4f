package reference

import taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"

// DefaultPolicyConfig is used when no tax_policy.yml is present.
func DefaultPolicyConfig() taxdomain.PolicyConfig {
	return taxdomain.PolicyConfig{
		EUVATCountries: []string{
			"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GB", "GR", "HR",
			"HU", "IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
		},
		GSTCountries:    []string{"AU", "SG"},
		NorwayCountries: []string{"NO"},
		TaxAllProductsCountries: []string{
			"AE", "BH", "BY", "CH", "CL", "EG", "GE", "IS", "IN", "JP", "KE", "KR", "MD",
			"MX", "NG", "NZ", "OM", "RS", "RU", "SA", "TH", "TR", "TZ", "UA", "UZ", "ZA",
		},
		TaxDigitalProductsCountries:     []string{"CO", "CR", "EC", "MY", "PH", "VN"},
		TaxDigitalIDValidationCountries: []string{"MY", "PH", "VN"},
		SpecialEpublicationCountries:    []string{"IS", "CH", "MX"},
		TaxableUSStates: []string{
			"AL", "AR", "AZ", "CA", "CO", "CT", "DC", "GA", "HI", "IA", "ID", "IL", "IN", "KS",
			"KY", "LA", "MA", "MD", "ME", "MI", "MN", "MS", "NC", "ND", "NE", "NJ", "NM", "NV",
			"NY", "OH", "OK", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VA", "VT", "WA", "WI",
			"WV", "WY",
		},
		CanaryIslandsSubdivisions: []string{
			"Canary Islands", "Las Palmas", "Santa Cruz de Tenerife", "CN", "GC", "TF",
		},
		Origin: taxdomain.Address{
			Country: "US",
			State:   "CA",
			Zip:     "94104",
			City:    "San Francisco",
			Street:  "548 Market St",
		},
	}
}
