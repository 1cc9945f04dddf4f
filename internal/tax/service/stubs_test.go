package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salestax/internal/clock"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type stubRates struct {
	rates   []taxdomain.TaxRate
	err     error
	queries []taxdomain.RateQuery
	created []*taxdomain.TaxRate
	deleted []snowflake.ID
}

func (s *stubRates) FindRates(ctx context.Context, q taxdomain.RateQuery) ([]taxdomain.TaxRate, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	var out []taxdomain.TaxRate
	for _, r := range s.rates {
		if q.Country != "" && r.Country != q.Country {
			continue
		}
		if q.State != "" && r.StateCode() != q.State {
			continue
		}
		if q.Epublication != nil && r.IsEpublicationRate != *q.Epublication {
			continue
		}
		if !q.IncludeSellerResponsible && r.IsSellerResponsible {
			continue
		}
		if !q.AnyOwner && r.UserID != nil && *r.UserID != q.SellerID {
			continue
		}
		if q.After != nil && !q.After.Follows(&r) {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *stubRates) FindByID(ctx context.Context, id snowflake.ID) (*taxdomain.TaxRate, error) {
	for i := range s.rates {
		if s.rates[i].ID == id {
			return &s.rates[i], nil
		}
	}
	return nil, nil
}

func (s *stubRates) Create(ctx context.Context, rate *taxdomain.TaxRate) error {
	s.created = append(s.created, rate)
	return s.err
}

func (s *stubRates) Delete(ctx context.Context, id snowflake.ID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

type mockTaxAPI struct {
	mock.Mock
}

func (m *mockTaxAPI) TaxForOrder(ctx context.Context, req taxdomain.TaxAPIRequest) (*taxdomain.TaxJarResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taxdomain.TaxJarResponse), args.Error(1)
}

type mockGeo struct {
	mock.Mock
}

func (m *mockGeo) Locate(ctx context.Context, ip string) (*taxdomain.GeoLocation, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taxdomain.GeoLocation), args.Error(1)
}

type stubValidator struct {
	name   string
	result taxdomain.ValidationResult
	err    error
	calls  int
}

func (v *stubValidator) Name() string { return v.name }

func (v *stubValidator) Validate(ctx context.Context, id string) (taxdomain.ValidationResult, error) {
	v.calls++
	return v.result, v.err
}

type stubRegistry struct {
	byCountry map[string]taxdomain.VatIDValidator
}

func (r stubRegistry) For(country, state string) taxdomain.VatIDValidator {
	return r.byCountry[country]
}

type stubFlags struct {
	active map[string]bool
	err    error
}

func (f stubFlags) IsActive(ctx context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[name], nil
}

type stubZips map[string]string

func (z stubZips) StateForZip(zip string) (string, bool) {
	state, ok := z[zip]
	return state, ok
}

type stubSellers struct {
	exempt map[snowflake.ID]bool
	err    error
}

func (s stubSellers) HasTaxExemptProcessorAccount(ctx context.Context, sellerID snowflake.ID) (bool, error) {
	return s.exempt[sellerID], s.err
}

func testPolicy() taxdomain.Policy {
	return taxdomain.NewPolicy(taxdomain.PolicyConfig{
		EUVATCountries:                  []string{"DE", "ES", "FR", "IT"},
		GSTCountries:                    []string{"AU", "SG"},
		NorwayCountries:                 []string{"NO"},
		TaxAllProductsCountries:         []string{"CH", "IN"},
		TaxDigitalProductsCountries:     []string{"MY", "CO"},
		TaxDigitalIDValidationCountries: []string{"MY"},
		SpecialEpublicationCountries:    []string{"CH"},
		TaxableUSStates:                 []string{"CA", "TX", "NY"},
		CanaryIslandsSubdivisions:       []string{"Canary Islands", "Las Palmas", "Santa Cruz de Tenerife", "CN"},
		Origin:                          taxdomain.Address{Country: "US", State: "CA", Zip: "94104", City: "San Francisco"},
	})
}

func testDeps(rates *stubRates) Dependencies {
	return Dependencies{
		Rates:      rates,
		Validators: stubRegistry{byCountry: map[string]taxdomain.VatIDValidator{}},
		Flags:      stubFlags{},
		Zips:       stubZips{"94104": "CA", "73301": "TX", "97201": "OR"},
		Clock:      clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Policy:     testPolicy(),
		Log:        zap.NewNop(),
	}
}

func testProduct() *taxdomain.Product {
	return &taxdomain.Product{ID: 101, SellerID: 7, Name: "Field notes", TaxCode: "31000"}
}

func rate(id int64, country, state, combined string) taxdomain.TaxRate {
	r := taxdomain.TaxRate{
		ID:           snowflake.ID(id),
		Country:      country,
		CombinedRate: decimal.RequireFromString(combined),
	}
	if state != "" {
		s := strings.ToUpper(state)
		r.State = &s
	}
	return r
}
