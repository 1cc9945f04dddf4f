package vatid

import (
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("vatid",
	fx.Provide(ProvideChecker),
	fx.Provide(fx.Annotate(NewRegistry, fx.As(new(taxdomain.VatIDValidatorRegistry)))),
)
