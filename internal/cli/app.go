package cli

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/observability"
	"go.uber.org/fx"
)

// coreOptions are shared by every command that builds the application graph.
func coreOptions() []fx.Option {
	return []fx.Option{
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
	}
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
