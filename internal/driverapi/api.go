package driverapi

import (
	"context"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// EventSink 接收驱动上报的规范化事件，由宿主实现。
type EventSink interface {
	HandleCoreEvent(ctx context.Context, ev *coremodel.CoreEvent) error
}

// CommandSource 向协议驱动发出规范化命令，由协议适配层实现。
type CommandSource interface {
	SendCoreCommand(ctx context.Context, cmd *coremodel.CoreCommand) error
}

// EventSinkFunc 函数适配器
type EventSinkFunc func(ctx context.Context, ev *coremodel.CoreEvent) error

// HandleCoreEvent implements EventSink.
func (f EventSinkFunc) HandleCoreEvent(ctx context.Context, ev *coremodel.CoreEvent) error {
	return f(ctx, ev)
}
