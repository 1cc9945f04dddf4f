package vatid

import (
	"context"
	"regexp"
	"strings"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
)

var separators = strings.NewReplacer(" ", "", ".", "", "-", "", "/", "", "\t", "")

// compact upper-cases an identifier and strips common separators.
func compact(id string) string {
	return separators.Replace(strings.ToUpper(strings.TrimSpace(id)))
}

func result(ok bool) taxdomain.ValidationResult {
	if ok {
		return taxdomain.ValidationValid
	}
	return taxdomain.ValidationInvalid
}

// patternValidator accepts identifiers matching a single expression.
type patternValidator struct {
	name    string
	pattern *regexp.Regexp
	// keepSeparators leaves dashes in place for schemes that require them.
	keepSeparators bool
}

func (v patternValidator) Name() string { return v.name }

func (v patternValidator) Validate(_ context.Context, id string) (taxdomain.ValidationResult, error) {
	normalized := compact(id)
	if v.keepSeparators {
		normalized = strings.ToUpper(strings.Join(strings.Fields(id), ""))
	}
	return result(v.pattern.MatchString(normalized)), nil
}

// Québec sales tax registration number: ten digits, TQ, four digits.
func NewQSTValidator() taxdomain.VatIDValidator {
	return patternValidator{name: "qst", pattern: regexp.MustCompile(`^\d{10}TQ\d{4}$`)}
}

// Kenya Revenue Authority PIN.
func NewKRAPINValidator() taxdomain.VatIDValidator {
	return patternValidator{name: "kra_pin", pattern: regexp.MustCompile(`^[AP]\d{9}[A-Z]$`)}
}

// Bahrain VAT account number.
func NewBahrainTRNValidator() taxdomain.VatIDValidator {
	return patternValidator{name: "bahrain_trn", pattern: regexp.MustCompile(`^\d{15}$`)}
}

// Oman VAT registration number.
func NewOmanVATValidator() taxdomain.VatIDValidator {
	return patternValidator{name: "oman_vat", pattern: regexp.MustCompile(`^OM\d{10}$`)}
}

// Nigeria FIRS tax identification number, eight digits dash four digits.
func NewFIRSTINValidator() taxdomain.VatIDValidator {
	return patternValidator{
		name:           "firs_tin",
		pattern:        regexp.MustCompile(`^\d{8}-\d{4}$`),
		keepSeparators: true,
	}
}

// Tanzania Revenue Authority TIN.
func NewTRATINValidator() taxdomain.VatIDValidator {
	return patternValidator{name: "tra_tin", pattern: regexp.MustCompile(`^\d{9}$`)}
}

var sgGSTPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{8,9}[A-Z]$`),
	regexp.MustCompile(`^[TSR]\d{2}[A-Z]{2}\d{4}[A-Z]$`),
	regexp.MustCompile(`^M[0-9A-Z]\d{7}[A-Z]$`),
}

type sgGSTValidator struct{}

// NewSGGSTValidator checks Singapore GST registration numbers in UEN or M-number form.
func NewSGGSTValidator() taxdomain.VatIDValidator { return sgGSTValidator{} }

func (sgGSTValidator) Name() string { return "sg_gst" }

func (sgGSTValidator) Validate(_ context.Context, id string) (taxdomain.ValidationResult, error) {
	normalized := compact(id)
	for _, p := range sgGSTPatterns {
		if p.MatchString(normalized) {
			return taxdomain.ValidationValid, nil
		}
	}
	return taxdomain.ValidationInvalid, nil
}

var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

type abnValidator struct{}

// NewABNValidator checks an Australian Business Number with the mod-89 checksum.
func NewABNValidator() taxdomain.VatIDValidator { return abnValidator{} }

func (abnValidator) Name() string { return "abn" }

func (abnValidator) Validate(_ context.Context, id string) (taxdomain.ValidationResult, error) {
	return result(validABN(compact(id))), nil
}

func validABN(s string) bool {
	digits, ok := parseDigits(s, 11)
	if !ok || digits[0] == 0 {
		return false
	}
	digits[0]--
	sum := 0
	for i, d := range digits {
		sum += d * abnWeights[i]
	}
	return sum%89 == 0
}

var mvaWeights = [8]int{3, 2, 7, 6, 5, 4, 3, 2}

type mvaValidator struct{}

// NewMVAValidator checks a Norwegian organisation number, optionally
// written with the NO prefix or MVA suffix.
func NewMVAValidator() taxdomain.VatIDValidator { return mvaValidator{} }

func (mvaValidator) Name() string { return "mva" }

func (mvaValidator) Validate(_ context.Context, id string) (taxdomain.ValidationResult, error) {
	s := compact(id)
	s = strings.TrimPrefix(s, "NO")
	s = strings.TrimSuffix(s, "MVA")
	return result(validMVA(s)), nil
}

func validMVA(s string) bool {
	digits, ok := parseDigits(s, 9)
	if !ok {
		return false
	}
	sum := 0
	for i, w := range mvaWeights {
		sum += digits[i] * w
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		return false
	}
	return digits[8] == check
}

func parseDigits(s string, n int) ([]int, bool) {
	if len(s) != n {
		return nil, false
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return nil, false
		}
		out[i] = int(c - '0')
	}
	return out, true
}
