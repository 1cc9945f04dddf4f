package reference

import (
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("reference",
	fx.Provide(func() taxdomain.ZipStateLookup { return DefaultZipTable() }),
)
