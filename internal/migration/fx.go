package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/seed"
	"github.com/smallbiznis/salestax/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(register),
)

// register runs after the database hook, so the connection has been
// verified by the time migrations start.
func register(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Apply(ctx, conn, cfg, genID, log.Named("migration"))
		},
	})
}

// Apply brings the schema up to date and optionally seeds default rates.
func Apply(ctx context.Context, conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	if cfg.DBType == db.TypePostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
	} else if err := AutoMigrate(conn); err != nil {
		return err
	}
	log.Info("schema up to date", zap.String("type", cfg.DBType))

	if !cfg.SeedDefaultRates {
		return nil
	}
	seeded, err := seed.EnsureDefaultRates(ctx, conn, genID)
	if err != nil {
		return err
	}
	if seeded > 0 {
		log.Info("seeded default tax rates", zap.Int("count", seeded))
	}
	return nil
}
