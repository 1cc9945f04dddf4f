package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/salestax/internal/reference"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const policyKey = "tax"

var defaultPolicyPaths = []string{
	"/var/lib/salestax/config", // Volume-mounted config
	"/etc/salestax",
	".",
}

// PolicyHolder serves the current tax policy and swaps it atomically
// whenever tax_policy.yml changes. Invalid edits are ignored.
type PolicyHolder struct {
	current atomic.Value // holds taxdomain.Policy
	log     *zap.Logger
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	return NewPolicyHolderFromPaths(log, defaultPolicyPaths...)
}

func NewPolicyHolderFromPaths(log *zap.Logger, paths ...string) (*PolicyHolder, error) {
	v := newPolicyViper(paths...)
	holder := &PolicyHolder{log: log.Named("config.policy")}

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	if err := holder.reload(v); err != nil {
		return nil, err
	}
	if !found {
		holder.log.Info("tax_policy.yml not found, using built-in policy")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			holder.log.Warn("invalid tax policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.log.Info("tax policy reloaded", zap.String("file", e.Name))
	})
	return holder, nil
}

func newPolicyViper(paths ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("tax_policy")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("SALESTAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := reference.DefaultPolicyConfig()
	v.SetDefault(policyKey+".euVatCountries", defaults.EUVATCountries)
	v.SetDefault(policyKey+".gstCountries", defaults.GSTCountries)
	v.SetDefault(policyKey+".norwayCountries", defaults.NorwayCountries)
	v.SetDefault(policyKey+".taxAllProductsCountries", defaults.TaxAllProductsCountries)
	v.SetDefault(policyKey+".taxDigitalProductsCountries", defaults.TaxDigitalProductsCountries)
	v.SetDefault(policyKey+".taxDigitalIdValidationCountries", defaults.TaxDigitalIDValidationCountries)
	v.SetDefault(policyKey+".specialEpublicationCountries", defaults.SpecialEpublicationCountries)
	v.SetDefault(policyKey+".taxableUsStates", defaults.TaxableUSStates)
	v.SetDefault(policyKey+".canaryIslandsSubdivisions", defaults.CanaryIslandsSubdivisions)
	v.SetDefault(policyKey+".origin.country", defaults.Origin.Country)
	v.SetDefault(policyKey+".origin.state", defaults.Origin.State)
	v.SetDefault(policyKey+".origin.zip", defaults.Origin.Zip)
	v.SetDefault(policyKey+".origin.city", defaults.Origin.City)
	v.SetDefault(policyKey+".origin.street", defaults.Origin.Street)
	return v
}

func (h *PolicyHolder) reload(v *viper.Viper) error {
	cfg := policyFromViper(v)
	if err := validatePolicyConfig(cfg); err != nil {
		return err
	}
	h.current.Store(taxdomain.NewPolicy(cfg))
	return nil
}

// policyFromViper reads each leaf on its own. UnmarshalKey on the parent
// returns the file's map as-is and drops nested defaults for missing keys.
func policyFromViper(v *viper.Viper) taxdomain.PolicyConfig {
	list := func(key string) []string { return v.GetStringSlice(policyKey + "." + key) }
	str := func(key string) string { return strings.TrimSpace(v.GetString(policyKey + "." + key)) }

	return taxdomain.PolicyConfig{
		EUVATCountries:                  list("euVatCountries"),
		GSTCountries:                    list("gstCountries"),
		NorwayCountries:                 list("norwayCountries"),
		TaxAllProductsCountries:         list("taxAllProductsCountries"),
		TaxDigitalProductsCountries:     list("taxDigitalProductsCountries"),
		TaxDigitalIDValidationCountries: list("taxDigitalIdValidationCountries"),
		SpecialEpublicationCountries:    list("specialEpublicationCountries"),
		TaxableUSStates:                 list("taxableUsStates"),
		CanaryIslandsSubdivisions:       list("canaryIslandsSubdivisions"),
		Origin: taxdomain.Address{
			Country: str("origin.country"),
			State:   str("origin.state"),
			Zip:     str("origin.zip"),
			City:    str("origin.city"),
			Street:  str("origin.street"),
		},
	}
}

// Policy returns the latest valid snapshot.
func (h *PolicyHolder) Policy() taxdomain.Policy {
	return h.current.Load().(taxdomain.Policy)
}

func validatePolicyConfig(cfg taxdomain.PolicyConfig) error {
	if len(cfg.EUVATCountries) == 0 {
		return errors.New("tax.euVatCountries cannot be empty")
	}
	if len(cfg.TaxableUSStates) == 0 {
		return errors.New("tax.taxableUsStates cannot be empty")
	}

	lists := map[string][]string{
		"euVatCountries":                  cfg.EUVATCountries,
		"gstCountries":                    cfg.GSTCountries,
		"norwayCountries":                 cfg.NorwayCountries,
		"taxAllProductsCountries":         cfg.TaxAllProductsCountries,
		"taxDigitalProductsCountries":     cfg.TaxDigitalProductsCountries,
		"taxDigitalIdValidationCountries": cfg.TaxDigitalIDValidationCountries,
		"specialEpublicationCountries":    cfg.SpecialEpublicationCountries,
		"taxableUsStates":                 cfg.TaxableUSStates,
	}
	for key, codes := range lists {
		for _, code := range codes {
			if !taxdomain.IsCountryCode(taxdomain.NormalizeCountry(code)) {
				return fmt.Errorf("tax.%s: invalid code %q", key, code)
			}
		}
	}
	if !taxdomain.IsCountryCode(taxdomain.NormalizeCountry(cfg.Origin.Country)) {
		return fmt.Errorf("tax.origin.country: invalid code %q", cfg.Origin.Country)
	}
	return nil
}
