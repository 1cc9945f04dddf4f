package service

import (
	"context"
	"fmt"

	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
)

// resolveRate walks the per-country priority chain of the rate table.
func (c *Calculator) resolveRate(ctx context.Context) (*taxdomain.TaxRate, error) {
	country := c.input.BuyerLocation.Country
	policy := c.deps.Policy
	epub := c.input.Product.IsEpublication
	notEpub := false

	switch {
	case c.isUSTaxableState:
		return c.firstRate(ctx, taxdomain.RateQuery{Country: taxdomain.CountryUS, State: c.state, Epublication: &notEpub})
	case policy.IsEUVATCountry(country):
		return c.firstRate(ctx, taxdomain.RateQuery{Country: country, Epublication: &epub})
	case country == taxdomain.CountryAU:
		return c.firstRate(ctx, taxdomain.RateQuery{Country: taxdomain.CountryAU, Epublication: &notEpub})
	case country == taxdomain.CountrySG:
		return c.singaporeRate(ctx)
	case country == taxdomain.CountryNO:
		return c.firstRate(ctx, taxdomain.RateQuery{Country: taxdomain.CountryNO, Epublication: &epub})
	case c.isCATaxable:
		return c.firstRate(ctx, taxdomain.RateQuery{Country: taxdomain.CountryCA, State: c.state, Epublication: &notEpub})
	default:
		return c.flaggedCountryRate(ctx, country)
	}
}

func (c *Calculator) flaggedCountryRate(ctx context.Context, country string) (*taxdomain.TaxRate, error) {
	policy := c.deps.Policy
	if !policy.TaxesAllProducts(country) && !policy.TaxesDigitalProducts(country) {
		return nil, nil
	}
	if !c.flagActive(ctx, country) {
		return nil, nil
	}

	q := taxdomain.RateQuery{Country: country}
	if policy.IsSpecialEpublicationCountry(country) {
		epub := c.input.Product.IsEpublication
		q.Epublication = &epub
	}
	return c.firstRate(ctx, q)
}

// singaporeRate prefers the rate applicable this year, else the one with
// the latest applicable year.
func (c *Calculator) singaporeRate(ctx context.Context) (*taxdomain.TaxRate, error) {
	notEpub := false
	rates, err := c.findRates(ctx, taxdomain.RateQuery{Country: taxdomain.CountrySG, Epublication: &notEpub})
	if err != nil || len(rates) == 0 {
		return nil, err
	}

	year := c.deps.Clock.Now().Year()
	for i := range rates {
		if rates[i].IsApplicableIn(year) {
			return &rates[i], nil
		}
	}

	latest := &rates[0]
	for i := 1; i < len(rates); i++ {
		if rates[i].MaxApplicableYear() > latest.MaxApplicableYear() {
			latest = &rates[i]
		}
	}
	return latest, nil
}

func (c *Calculator) firstRate(ctx context.Context, q taxdomain.RateQuery) (*taxdomain.TaxRate, error) {
	rates, err := c.findRates(ctx, q)
	if err != nil || len(rates) == 0 {
		return nil, err
	}
	return &rates[0], nil
}

func (c *Calculator) findRates(ctx context.Context, q taxdomain.RateQuery) ([]taxdomain.TaxRate, error) {
	q.SellerID = c.input.Product.SellerID
	rates, err := c.deps.Rates.FindRates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find tax rates for %s: %w", q.Country, err)
	}
	return rates, nil
}

// isEligible reports whether a resolved rate may actually be charged.
func (c *Calculator) isEligible(ctx context.Context, rate *taxdomain.TaxRate) bool {
	policy := c.deps.Policy
	country := rate.Country
	physical := c.input.Product.IsPhysical

	switch {
	case physical && country == taxdomain.CountryUS:
		return true
	case policy.IsEUVATCountry(country):
		return true
	case country == taxdomain.CountryAU, country == taxdomain.CountrySG, country == taxdomain.CountryNO:
		return true
	case c.isUSTaxableState, c.isCATaxable:
		return true
	case rate.IsCreatorOverride():
		return true
	}

	if policy.TaxesAllProducts(country) && c.flagActive(ctx, country) {
		return true
	}
	if policy.TaxesDigitalProducts(country) && !physical && c.flagActive(ctx, country) {
		return true
	}
	return false
}
