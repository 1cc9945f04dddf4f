package domain

import "strings"

// PolicyConfig is the raw, process-wide tax configuration.
type PolicyConfig struct {
	EUVATCountries                  []string `mapstructure:"euVatCountries" yaml:"euVatCountries"`
	GSTCountries                    []string `mapstructure:"gstCountries" yaml:"gstCountries"`
	NorwayCountries                 []string `mapstructure:"norwayCountries" yaml:"norwayCountries"`
	TaxAllProductsCountries         []string `mapstructure:"taxAllProductsCountries" yaml:"taxAllProductsCountries"`
	TaxDigitalProductsCountries     []string `mapstructure:"taxDigitalProductsCountries" yaml:"taxDigitalProductsCountries"`
	TaxDigitalIDValidationCountries []string `mapstructure:"taxDigitalIdValidationCountries" yaml:"taxDigitalIdValidationCountries"`
	SpecialEpublicationCountries    []string `mapstructure:"specialEpublicationCountries" yaml:"specialEpublicationCountries"`
	TaxableUSStates                 []string `mapstructure:"taxableUsStates" yaml:"taxableUsStates"`
	CanaryIslandsSubdivisions       []string `mapstructure:"canaryIslandsSubdivisions" yaml:"canaryIslandsSubdivisions"`
	Origin                          Address  `mapstructure:"origin" yaml:"origin"`
}

type codeSet map[string]struct{}

func newCodeSet(values []string) codeSet {
	set := make(codeSet, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func (s codeSet) has(code string) bool {
	_, ok := s[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Policy is an immutable snapshot of PolicyConfig with set lookups.
type Policy struct {
	euVAT             codeSet
	gst               codeSet
	norway            codeSet
	taxAll            codeSet
	taxDigital        codeSet
	taxDigitalIDCheck codeSet
	specialEpub       codeSet
	usStates          codeSet
	canary            codeSet
	origin            Address
}

func NewPolicy(cfg PolicyConfig) Policy {
	return Policy{
		euVAT:             newCodeSet(cfg.EUVATCountries),
		gst:               newCodeSet(cfg.GSTCountries),
		norway:            newCodeSet(cfg.NorwayCountries),
		taxAll:            newCodeSet(cfg.TaxAllProductsCountries),
		taxDigital:        newCodeSet(cfg.TaxDigitalProductsCountries),
		taxDigitalIDCheck: newCodeSet(cfg.TaxDigitalIDValidationCountries),
		specialEpub:       newCodeSet(cfg.SpecialEpublicationCountries),
		usStates:          newCodeSet(cfg.TaxableUSStates),
		canary:            newCodeSet(cfg.CanaryIslandsSubdivisions),
		origin:            cfg.Origin,
	}
}

func (p Policy) IsEUVATCountry(code string) bool { return p.euVAT.has(code) }
func (p Policy) IsGSTCountry(code string) bool { return p.gst.has(code) }
func (p Policy) IsNorway(code string) bool { return p.norway.has(code) }
func (p Policy) TaxesAllProducts(code string) bool { return p.taxAll.has(code) }
func (p Policy) TaxesDigitalProducts(code string) bool { return p.taxDigital.has(code) }

// ValidatesDigitalTaxID reports countries in the digital-products set whose
// tax IDs go through the generic per-country validator.
func (p Policy) ValidatesDigitalTaxID(code string) bool { return p.taxDigitalIDCheck.has(code) }

func (p Policy) IsSpecialEpublicationCountry(code string) bool { return p.specialEpub.has(code) }
func (p Policy) IsTaxableUSState(state string) bool { return p.usStates.has(state) }
func (p Policy) Origin() Address { return p.origin }

// IsCanaryIslandsSubdivision matches subdivision names or ISO codes case-insensitively.
func (p Policy) IsCanaryIslandsSubdivision(name string) bool { return p.canary.has(name) }

// CollectsVatID reports whether buyers in the country may enter a VAT/tax ID.
func (p Policy) CollectsVatID(code string) bool {
	return p.IsEUVATCountry(code) ||
		p.IsGSTCountry(code) ||
		p.IsNorway(code) ||
		p.TaxesAllProducts(code) ||
		p.TaxesDigitalProducts(code)
}

// PolicySource returns the current policy snapshot; implementations may reload.
type PolicySource interface {
	Policy() Policy
}

// StaticPolicy is a fixed PolicySource.
type StaticPolicy Policy

func (s StaticPolicy) Policy() Policy { return Policy(s) }
