package feature

import (
	"context"

	"github.com/smallbiznis/salestax/internal/feature/domain"
)

// StaticFlags is a fixed set of active flags, read from configuration.
type StaticFlags map[string]struct{}

func NewStaticFlags(names ...string) StaticFlags {
	flags := make(StaticFlags, len(names))
	for _, n := range names {
		if n = domain.NormalizeName(n); n != "" {
			flags[n] = struct{}{}
		}
	}
	return flags
}

func (f StaticFlags) IsActive(_ context.Context, name string) (bool, error) {
	_, ok := f[domain.NormalizeName(name)]
	return ok, nil
}
