package sds011

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// EventEmitter 把解释出的事件交给下游；下游错误只记日志，不回传给读循环
type EventEmitter struct {
	sink   driverapi.EventSink
	logger *zap.Logger
}

// NewEventEmitter sink 为 nil 时事件被丢弃并告警
func NewEventEmitter(sink driverapi.EventSink, logger *zap.Logger) *EventEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventEmitter{sink: sink, logger: logger}
}

// Emit 投递一条测量或提示事件
func (e *EventEmitter) Emit(ctx context.Context, ev *coremodel.CoreEvent) {
	if ev == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_type", string(ev.Type)),
		zap.Stringer("device_id", ev.DeviceID),
	}
	if e.sink == nil {
		e.logger.Warn("sds011 event dropped, no sink", fields...)
		return
	}
	if err := e.sink.HandleCoreEvent(ctx, ev); err != nil {
		e.logger.Error("sds011 event sink failed", append(fields, zap.Error(err))...)
	}
}
