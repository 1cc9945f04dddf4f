package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/seller/domain"
	"github.com/smallbiznis/salestax/internal/seller/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Account{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestService_HasTaxExemptProcessorAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	exempt, err := svc.HasTaxExemptProcessorAccount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, exempt)

	_, err = svc.Register(ctx, domain.RegisterRequest{SellerID: "7", Processor: "paypal", Country: "us"})
	require.NoError(t, err)
	exempt, _ = svc.HasTaxExemptProcessorAccount(ctx, 7)
	assert.False(t, exempt)

	created, err := svc.Register(ctx, domain.RegisterRequest{SellerID: "7", Processor: " Stripe ", Country: "br", TaxExempt: true})
	require.NoError(t, err)
	assert.Equal(t, "stripe", created.Processor)
	assert.Equal(t, "BR", created.Country)

	exempt, err = svc.HasTaxExemptProcessorAccount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exempt)

	exempt, _ = svc.HasTaxExemptProcessorAccount(ctx, 8)
	assert.False(t, exempt)

	// re-registering updates the existing row
	updated, err := svc.Register(ctx, domain.RegisterRequest{SellerID: "7", Processor: "stripe", Country: "BR", TaxExempt: false})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	exempt, _ = svc.HasTaxExemptProcessorAccount(ctx, 7)
	assert.False(t, exempt)
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.RegisterRequest
		err  error
	}{
		{"bad seller", domain.RegisterRequest{SellerID: "x", Processor: "stripe", Country: "BR"}, domain.ErrInvalidSeller},
		{"zero seller", domain.RegisterRequest{SellerID: "0", Processor: "stripe", Country: "BR"}, domain.ErrInvalidSeller},
		{"no processor", domain.RegisterRequest{SellerID: "7", Country: "BR"}, domain.ErrInvalidProcessor},
		{"bad country", domain.RegisterRequest{SellerID: "7", Processor: "stripe", Country: "BRA"}, domain.ErrInvalidCountry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
