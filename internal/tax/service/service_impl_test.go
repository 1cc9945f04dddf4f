package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/smallbiznis/salestax/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, rates *stubRates, registry *prometheus.Registry) taxdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	var m *metrics.TaxMetrics
	if registry != nil {
		m = metrics.NewTaxMetrics(registry, metrics.Config{ServiceName: "salestax", Environment: "test"})
	}

	return NewService(ServiceParams{
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       rates,
		Validators: stubRegistry{byCountry: map[string]taxdomain.VatIDValidator{}},
		Flags:      stubFlags{},
		Zips:       stubZips{"94104": "CA"},
		Clock:      clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Policy:     taxdomain.StaticPolicy(testPolicy()),
		Metrics:    m,
	})
}

func TestService_CalculateRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	svc := newTestService(t, &stubRates{rates: []taxdomain.TaxRate{rate(1, "DE", "", "0.19")}}, registry)

	calc, err := svc.Calculate(context.Background(), taxdomain.CalculateRequest{
		Product:       testProduct(),
		Price:         1000,
		BuyerLocation: taxdomain.BuyerLocation{Country: "de"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(190), calc.TaxCents())
	assert.True(t, calc.HasVatIDInput(svc.Policy()))

	count, err := testutil.GatherAndCount(registry, "salestax_calculations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_CalculateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, &stubRates{}, nil)

	_, err := svc.Calculate(context.Background(), taxdomain.CalculateRequest{
		Price:         1000,
		BuyerLocation: taxdomain.BuyerLocation{Country: "DE"},
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidProduct)
}

func TestService_CreateRate(t *testing.T) {
	rates := &stubRates{}
	svc := newTestService(t, rates, nil)
	state := " ca "
	owner := "42"

	resp, err := svc.CreateRate(context.Background(), taxdomain.CreateRateRequest{
		Country:         "us",
		State:           &state,
		CombinedRate:    "0.0825",
		ApplicableYears: []int{2024},
		UserID:          &owner,
	})
	require.NoError(t, err)
	require.Len(t, rates.created, 1)

	created := rates.created[0]
	assert.NotZero(t, created.ID)
	assert.Equal(t, "US", created.Country)
	assert.Equal(t, "CA", created.StateCode())
	assert.Equal(t, "0.0825", created.CombinedRate.String())
	require.NotNil(t, created.UserID)
	assert.Equal(t, snowflake.ID(42), *created.UserID)
	assert.Equal(t, created.ID.String(), resp.ID)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, "42", *resp.UserID)
}

func TestService_CreateRateValidation(t *testing.T) {
	svc := newTestService(t, &stubRates{}, nil)
	badOwner := "abc"

	cases := []struct {
		name string
		req  taxdomain.CreateRateRequest
		want error
	}{
		{name: "not a number", req: taxdomain.CreateRateRequest{Country: "US", CombinedRate: "eight"}, want: taxdomain.ErrInvalidTaxRate},
		{name: "above one", req: taxdomain.CreateRateRequest{Country: "US", CombinedRate: "8.25"}, want: taxdomain.ErrInvalidTaxRate},
		{name: "negative", req: taxdomain.CreateRateRequest{Country: "US", CombinedRate: "-0.1"}, want: taxdomain.ErrInvalidTaxRate},
		{name: "bad country", req: taxdomain.CreateRateRequest{Country: "USA", CombinedRate: "0.1"}, want: taxdomain.ErrInvalidCountry},
		{name: "bad owner", req: taxdomain.CreateRateRequest{Country: "US", CombinedRate: "0.1", UserID: &badOwner}, want: taxdomain.ErrInvalidID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRate(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestService_ListRatesIncludesOverrides(t *testing.T) {
	override := rate(2, "US", "CA", "0.05")
	owner := snowflake.ID(99)
	override.UserID = &owner
	rates := &stubRates{rates: []taxdomain.TaxRate{rate(1, "US", "CA", "0.0825"), override}}
	svc := newTestService(t, rates, nil)

	resp, err := svc.ListRates(context.Background(), taxdomain.ListRatesRequest{Country: "us", State: "ca"})
	require.NoError(t, err)
	assert.Len(t, resp.Rates, 2)
	assert.False(t, resp.PageInfo.HasMore)
	require.Len(t, rates.queries, 1)
	assert.True(t, rates.queries[0].AnyOwner)
	assert.Equal(t, "US", rates.queries[0].Country)
	assert.Equal(t, pagination.DefaultPageSize+1, rates.queries[0].Limit)
}

func TestService_ListRatesPaginates(t *testing.T) {
	rates := &stubRates{rates: []taxdomain.TaxRate{
		rate(1, "DE", "", "0.19"),
		rate(2, "FR", "", "0.20"),
		rate(3, "IT", "", "0.22"),
	}}
	svc := newTestService(t, rates, nil)
	ctx := context.Background()

	first, err := svc.ListRates(ctx, taxdomain.ListRatesRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Rates, 2)
	assert.Equal(t, "2", first.Rates[1].ID)
	require.True(t, first.PageInfo.HasMore)

	second, err := svc.ListRates(ctx, taxdomain.ListRatesRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Rates, 1)
	assert.Equal(t, "3", second.Rates[0].ID)
	assert.False(t, second.PageInfo.HasMore)

	_, err = svc.ListRates(ctx, taxdomain.ListRatesRequest{Pagination: pagination.Pagination{PageToken: "garbage"}})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidPageToken)

	idOnly, err := pagination.EncodeCursor(pagination.Cursor{ID: "2"})
	require.NoError(t, err)
	_, err = svc.ListRates(ctx, taxdomain.ListRatesRequest{Pagination: pagination.Pagination{PageToken: idOnly}})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidPageToken)
}

func TestService_ListRatesCursorCarriesCreatedAt(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := rate(1, "FR", "", "0.20")
	newer.CreatedAt = base.Add(time.Hour)
	older := rate(2, "DE", "", "0.19")
	older.CreatedAt = base
	rates := &stubRates{rates: []taxdomain.TaxRate{older, newer}}
	svc := newTestService(t, rates, nil)
	ctx := context.Background()

	first, err := svc.ListRates(ctx, taxdomain.ListRatesRequest{Pagination: pagination.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.True(t, first.PageInfo.HasMore)

	cursor, err := pagination.DecodeCursor(first.PageInfo.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)
	assert.Equal(t, base.Format(time.RFC3339Nano), cursor.CreatedAt)

	second, err := svc.ListRates(ctx, taxdomain.ListRatesRequest{
		Pagination: pagination.Pagination{PageSize: 1, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Rates, 1)
	assert.Equal(t, "1", second.Rates[0].ID)

	last := rates.queries[len(rates.queries)-1].After
	require.NotNil(t, last)
	assert.Equal(t, snowflake.ID(2), last.ID)
	assert.True(t, last.CreatedAt.Equal(base))
}

func TestService_DeleteRate(t *testing.T) {
	rates := &stubRates{rates: []taxdomain.TaxRate{rate(5, "DE", "", "0.19")}}
	svc := newTestService(t, rates, nil)

	assert.ErrorIs(t, svc.DeleteRate(context.Background(), "nope"), taxdomain.ErrInvalidID)
	assert.ErrorIs(t, svc.DeleteRate(context.Background(), "6"), taxdomain.ErrNotFound)

	require.NoError(t, svc.DeleteRate(context.Background(), "5"))
	assert.Equal(t, []snowflake.ID{5}, rates.deleted)
}

type recordingAudit struct {
	entries []auditdomain.Entry
}

func (a *recordingAudit) Record(_ context.Context, entry auditdomain.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (*auditdomain.ListAuditLogResponse, error) {
	return &auditdomain.ListAuditLogResponse{}, nil
}

func TestService_RateChangesAreAudited(t *testing.T) {
	rates := &stubRates{rates: []taxdomain.TaxRate{rate(5, "DE", "", "0.19")}}
	svc := newTestService(t, rates, nil).(*Service)
	audit := &recordingAudit{}
	svc.audit = audit

	created, err := svc.CreateRate(context.Background(), taxdomain.CreateRateRequest{Country: "fr", CombinedRate: "0.2"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRate(context.Background(), "5"))

	require.Len(t, audit.entries, 2)
	assert.Equal(t, auditdomain.ActionTaxRateCreated, audit.entries[0].Action)
	assert.Equal(t, created.ID, audit.entries[0].TargetID)
	assert.Equal(t, "FR", audit.entries[0].Metadata["country"])
	assert.Equal(t, auditdomain.ActionTaxRateDeleted, audit.entries[1].Action)
	assert.Equal(t, "5", audit.entries[1].TargetID)
	assert.Equal(t, "0.19", audit.entries[1].Metadata["combined_rate"])
}
