package feature

import (
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/feature/domain"
	"github.com/smallbiznis/salestax/internal/feature/repository"
	"github.com/smallbiznis/salestax/internal/feature/service"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("feature.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(NewFlags),
)

// NewFlags picks the store the tax engine reads flags from.
func NewFlags(cfg config.Config, svc domain.Service) taxdomain.FeatureFlags {
	if cfg.Feature.Store == config.FeatureStoreStatic {
		return NewStaticFlags(cfg.Feature.StaticFlags...)
	}
	return svc
}
