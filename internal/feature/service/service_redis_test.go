package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/feature/domain"
	"github.com/smallbiznis/salestax/internal/feature/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type flagStores struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newFlagStores(t *testing.T) flagStores {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Flag{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return flagStores{db: db, node: node, clock: clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}
}

func (f flagStores) service(store string, client *redis.Client, lc fx.Lifecycle) *Service {
	return New(Params{
		Lc:     lc,
		DB:     f.db,
		Log:    zap.NewNop(),
		GenID:  f.node,
		Repo:   repository.Provide(),
		Clock:  f.clock,
		Config: config.Config{Feature: config.FeatureConfig{Store: store}},
		Redis:  client,
	}).(*Service)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_ColdStartReadsDatabase(t *testing.T) {
	stores := newFlagStores(t)
	ctx := context.Background()

	_, err := stores.service(config.FeatureStoreDatabase, nil, nil).Activate(ctx, "collect_tax_ch")
	require.NoError(t, err)

	mr, client := newRedis(t)
	svc := stores.service(config.FeatureStoreRedis, client, nil)

	active, err := svc.IsActive(ctx, "collect_tax_ch")
	require.NoError(t, err)
	assert.True(t, active)

	ok, err := mr.SIsMember(activeSetKey, "collect_tax_ch")
	require.NoError(t, err)
	assert.True(t, ok, "set rebuilt from the database")
	assert.True(t, mr.Exists(syncedKey))

	active, err = svc.IsActive(ctx, "collect_tax_in")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRedisStore_SyncsOnStart(t *testing.T) {
	stores := newFlagStores(t)
	ctx := context.Background()

	dbSvc := stores.service(config.FeatureStoreDatabase, nil, nil)
	for _, name := range []string{"collect_tax_ch", "collect_tax_my"} {
		_, err := dbSvc.Activate(ctx, name)
		require.NoError(t, err)
	}
	_, err := dbSvc.Deactivate(ctx, "collect_tax_my")
	require.NoError(t, err)

	mr, client := newRedis(t)
	lc := fxtest.NewLifecycle(t)
	stores.service(config.FeatureStoreRedis, client, lc)
	lc.RequireStart()
	defer lc.RequireStop()

	members, err := mr.Members(activeSetKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"collect_tax_ch"}, members)
	assert.True(t, mr.Exists(syncedKey))
}

func TestRedisStore_FlushedRedisFallsBackToDatabase(t *testing.T) {
	stores := newFlagStores(t)
	ctx := context.Background()
	mr, client := newRedis(t)
	svc := stores.service(config.FeatureStoreRedis, client, nil)

	_, err := svc.Activate(ctx, "collect_tax_ch")
	require.NoError(t, err)
	require.NoError(t, svc.SyncActive(ctx))

	mr.FlushAll()

	active, err := svc.IsActive(ctx, "collect_tax_ch")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRedisStore_SyncedSetAnswersInactive(t *testing.T) {
	stores := newFlagStores(t)
	ctx := context.Background()
	_, client := newRedis(t)
	svc := stores.service(config.FeatureStoreRedis, client, nil)

	_, err := svc.Activate(ctx, "collect_tax_ch")
	require.NoError(t, err)
	require.NoError(t, svc.SyncActive(ctx))

	_, err = svc.Deactivate(ctx, "collect_tax_ch")
	require.NoError(t, err)

	active, err := svc.IsActive(ctx, "collect_tax_ch")
	require.NoError(t, err)
	assert.False(t, active)
}
