package vatid

import (
	"context"
	"regexp"
	"strings"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
)

// VAT number formats keyed by VAT prefix, without the prefix itself.
var euVATPatterns = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^U\d{8}$`),
	"BE": regexp.MustCompile(`^[01]\d{9}$`),
	"BG": regexp.MustCompile(`^\d{9,10}$`),
	"CY": regexp.MustCompile(`^\d{8}[A-Z]$`),
	"CZ": regexp.MustCompile(`^\d{8,10}$`),
	"DE": regexp.MustCompile(`^\d{9}$`),
	"DK": regexp.MustCompile(`^\d{8}$`),
	"EE": regexp.MustCompile(`^\d{9}$`),
	"EL": regexp.MustCompile(`^\d{9}$`),
	"ES": regexp.MustCompile(`^[A-Z0-9]\d{7}[A-Z0-9]$`),
	"FI": regexp.MustCompile(`^\d{8}$`),
	"FR": regexp.MustCompile(`^[A-HJ-NP-Z0-9]{2}\d{9}$`),
	"GB": regexp.MustCompile(`^(\d{9}|\d{12}|GD[0-4]\d{2}|HA[5-9]\d{2})$`),
	"HR": regexp.MustCompile(`^\d{11}$`),
	"HU": regexp.MustCompile(`^\d{8}$`),
	"IE": regexp.MustCompile(`^(\d{7}[A-W][A-IW]?|\d[A-Z+*]\d{5}[A-W])$`),
	"IT": regexp.MustCompile(`^\d{11}$`),
	"LT": regexp.MustCompile(`^(\d{9}|\d{12})$`),
	"LU": regexp.MustCompile(`^\d{8}$`),
	"LV": regexp.MustCompile(`^\d{11}$`),
	"MT": regexp.MustCompile(`^\d{8}$`),
	"NL": regexp.MustCompile(`^\d{9}B\d{2}$`),
	"PL": regexp.MustCompile(`^\d{10}$`),
	"PT": regexp.MustCompile(`^\d{9}$`),
	"RO": regexp.MustCompile(`^\d{2,10}$`),
	"SE": regexp.MustCompile(`^\d{10}01$`),
	"SI": regexp.MustCompile(`^\d{8}$`),
	"SK": regexp.MustCompile(`^\d{10}$`),
	"XI": regexp.MustCompile(`^(\d{9}|\d{12}|GD[0-4]\d{2}|HA[5-9]\d{2})$`),
}

// vatPrefix maps an ISO country code to its VAT number prefix.
func vatPrefix(country string) string {
	if country == "GR" {
		return "EL"
	}
	return country
}

// Checker confirms a syntactically valid VAT number with a remote registry.
type Checker interface {
	Check(ctx context.Context, prefix, number string) (taxdomain.ValidationResult, error)
}

type euVATValidator struct {
	country string
	checker Checker
}

// NewEUVATValidator validates VAT numbers for the buyer's country. A
// missing country prefix is assumed to be the buyer's own. When checker is
// set, well-formed numbers are confirmed remotely.
func NewEUVATValidator(country string, checker Checker) taxdomain.VatIDValidator {
	return euVATValidator{country: taxdomain.NormalizeCountry(country), checker: checker}
}

func (v euVATValidator) Name() string { return "eu_vat" }

func (v euVATValidator) Validate(ctx context.Context, id string) (taxdomain.ValidationResult, error) {
	prefix, number := splitVATNumber(compact(id), vatPrefix(v.country))
	pattern, ok := euVATPatterns[prefix]
	if !ok || !pattern.MatchString(number) {
		return taxdomain.ValidationInvalid, nil
	}
	// Great Britain left VIES; the format check is all there is.
	if v.checker == nil || prefix == "GB" {
		return taxdomain.ValidationValid, nil
	}
	return v.checker.Check(ctx, prefix, number)
}

func splitVATNumber(s, defaultPrefix string) (string, string) {
	if len(s) > 2 {
		if _, ok := euVATPatterns[s[:2]]; ok && !isDigit(s[0]) {
			return s[:2], s[2:]
		}
	}
	return defaultPrefix, strings.TrimPrefix(s, defaultPrefix)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
