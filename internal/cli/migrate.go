package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/migration"
	"github.com/smallbiznis/salestax/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const migrateTimeout = 5 * time.Minute

func newMigrateCmd() *cobra.Command {
	var seedRates bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append(coreOptions(), db.Module, migration.Module)
			if seedRates {
				opts = append(opts, fx.Decorate(func(cfg config.Config) config.Config {
					cfg.SeedDefaultRates = true
					return cfg
				}))
			}

			app := fx.New(opts...)
			if err := app.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return app.Stop(ctx)
		},
	}
	cmd.Flags().BoolVar(&seedRates, "seed", false, "insert the default rate table when it is empty")
	return cmd
}
