package feature

import (
	"context"
	"testing"

	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/feature/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFlags(t *testing.T) {
	flags := NewStaticFlags("COLLECT_TAX_CH", " ", "collect_tax_my")

	active, err := flags.IsActive(context.Background(), "collect_tax_ch")
	require.NoError(t, err)
	assert.True(t, active)

	active, _ = flags.IsActive(context.Background(), "collect_tax_in")
	assert.False(t, active)
	assert.Len(t, flags, 2)
}

type nopService struct{ domain.Service }

func TestNewFlags(t *testing.T) {
	static := config.Config{Feature: config.FeatureConfig{Store: config.FeatureStoreStatic, StaticFlags: []string{"collect_tax_ch"}}}
	assert.IsType(t, StaticFlags{}, NewFlags(static, nopService{}))

	db := config.Config{Feature: config.FeatureConfig{Store: config.FeatureStoreDatabase}}
	assert.IsType(t, nopService{}, NewFlags(db, nopService{}))
}
