package seller

import (
	"github.com/smallbiznis/salestax/internal/seller/domain"
	"github.com/smallbiznis/salestax/internal/seller/repository"
	"github.com/smallbiznis/salestax/internal/seller/service"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("seller.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		service.New,
		fx.As(new(domain.Service)),
		fx.As(new(taxdomain.SellerAccounts)),
	)),
)
