package vatid

import (
	"context"
	"regexp"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
)

// Business tax identifier formats for countries without a dedicated validator.
// Separators are stripped before matching.
var taxIDPatterns = map[string]*regexp.Regexp{
	"AE": regexp.MustCompile(`^\d{15}$`),
	"BY": regexp.MustCompile(`^\d{9}$`),
	"CH": regexp.MustCompile(`^CHE\d{9}(MWST|TVA|IVA)?$`),
	"CL": regexp.MustCompile(`^\d{7,8}[0-9K]$`),
	"CO": regexp.MustCompile(`^\d{9,10}$`),
	"CR": regexp.MustCompile(`^\d{9,12}$`),
	"EC": regexp.MustCompile(`^\d{13}$`),
	"EG": regexp.MustCompile(`^\d{9}$`),
	"GE": regexp.MustCompile(`^\d{9}$`),
	"IN": regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`),
	"IS": regexp.MustCompile(`^\d{5,6}$`),
	"JP": regexp.MustCompile(`^T?\d{13}$`),
	"KR": regexp.MustCompile(`^\d{10}$`),
	"MD": regexp.MustCompile(`^\d{13}$`),
	"MX": regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`),
	"MY": regexp.MustCompile(`^[A-Z]\d{2}\d{4}\d{8}$`),
	"NZ": regexp.MustCompile(`^\d{8,9}$`),
	"PH": regexp.MustCompile(`^\d{9}(\d{3,5})?$`),
	"RS": regexp.MustCompile(`^\d{9}$`),
	"RU": regexp.MustCompile(`^\d{10}(\d{2})?$`),
	"SA": regexp.MustCompile(`^3\d{13}3$`),
	"TH": regexp.MustCompile(`^\d{13}$`),
	"TR": regexp.MustCompile(`^\d{10}$`),
	"UA": regexp.MustCompile(`^\d{12}$`),
	"UZ": regexp.MustCompile(`^\d{9}$`),
	"VN": regexp.MustCompile(`^\d{10}(\d{3})?$`),
	"ZA": regexp.MustCompile(`^4\d{9}$`),
}

var fallbackTaxIDPattern = regexp.MustCompile(`^[0-9A-Z]{5,20}$`)

type taxIDValidator struct {
	country string
}

// NewTaxIDValidator returns the per-country business tax identifier check.
func NewTaxIDValidator(country string) taxdomain.VatIDValidator {
	return taxIDValidator{country: taxdomain.NormalizeCountry(country)}
}

func (v taxIDValidator) Name() string { return "tax_id_" + v.country }

func (v taxIDValidator) Validate(_ context.Context, id string) (taxdomain.ValidationResult, error) {
	pattern, ok := taxIDPatterns[v.country]
	if !ok {
		pattern = fallbackTaxIDPattern
	}
	return result(pattern.MatchString(compact(id))), nil
}
