package app

import (
	"context"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
	"github.com/taoyao-code/sds011-gateway/internal/metrics"
)

// meteredCommands 命令下发计数
type meteredCommands struct {
	next driverapi.CommandSource
	m    *metrics.AppMetrics
}

// WithCommandMetrics 包装 CommandSource，按命令名与结果计数
func WithCommandMetrics(next driverapi.CommandSource, m *metrics.AppMetrics) driverapi.CommandSource {
	if m == nil {
		return next
	}
	return &meteredCommands{next: next, m: m}
}

func (c *meteredCommands) SendCoreCommand(ctx context.Context, cmd *coremodel.CoreCommand) error {
	err := c.next.SendCoreCommand(ctx, cmd)
	if cmd != nil {
		c.m.CommandResult(cmd.Name, err)
	}
	return err
}
