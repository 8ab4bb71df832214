package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// namedSink 带名称的下游，便于日志定位
type namedSink struct {
	name string
	sink driverapi.EventSink
}

// FanoutSink 实现 driverapi.EventSink，按注册顺序把事件分发给所有下游。
// 下游失败只记日志，不影响其他下游，也不回传给协议驱动。
type FanoutSink struct {
	mu    sync.RWMutex
	sinks []namedSink
	log   *zap.Logger
}

var _ driverapi.EventSink = (*FanoutSink)(nil)

func NewFanoutSink(log *zap.Logger) *FanoutSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &FanoutSink{log: log}
}

// Add 注册下游；sink 为 nil 时忽略
func (f *FanoutSink) Add(name string, sink driverapi.EventSink) {
	if sink == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	f.mu.Unlock()
}

// Names 已注册下游名称
func (f *FanoutSink) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.name)
	}
	return out
}

// HandleCoreEvent implements driverapi.EventSink.
func (f *FanoutSink) HandleCoreEvent(ctx context.Context, ev *coremodel.CoreEvent) error {
	if ev == nil {
		return nil
	}
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.HandleCoreEvent(ctx, ev); err != nil {
			f.log.Warn("event sink failed",
				zap.String("sink", s.name),
				zap.String("event_id", ev.ID),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err))
		}
	}
	return nil
}

// NewLogSink 测量值记 info，提示信息记 info，未知应答记 warn
func NewLogSink(log *zap.Logger) driverapi.EventSink {
	return driverapi.EventSinkFunc(func(_ context.Context, ev *coremodel.CoreEvent) error {
		switch {
		case ev.Measurement != nil:
			log.Info("sds011 measurement",
				zap.Stringer("device_id", ev.DeviceID),
				zap.Float64("pm25", ev.Measurement.PM25),
				zap.Float64("pm10", ev.Measurement.PM10))
		case ev.Info != nil && ev.Info.Unknown:
			log.Warn("sds011 unrecognised frame",
				zap.Stringer("device_id", ev.DeviceID),
				zap.String("message", ev.Info.Message))
		case ev.Info != nil:
			log.Info("sds011 info",
				zap.Stringer("device_id", ev.DeviceID),
				zap.String("message", ev.Info.Message))
		}
		return nil
	})
}

// LatestCache 进程内最新测量值，Redis 未启用时供 HTTP 接口查询
type LatestCache struct {
	mu sync.RWMutex
	m  map[coremodel.DeviceID]coremodel.LatestReading
}

func NewLatestCache() *LatestCache {
	return &LatestCache{m: make(map[coremodel.DeviceID]coremodel.LatestReading)}
}

// HandleCoreEvent implements driverapi.EventSink.
func (c *LatestCache) HandleCoreEvent(_ context.Context, ev *coremodel.CoreEvent) error {
	if ev == nil || ev.Measurement == nil {
		return nil
	}
	c.mu.Lock()
	c.m[ev.DeviceID] = coremodel.LatestReading{
		DeviceID: ev.DeviceID,
		PM25:     ev.Measurement.PM25,
		PM10:     ev.Measurement.PM10,
		At:       ev.OccurredAt,
	}
	c.mu.Unlock()
	return nil
}

// Latest 不存在时返回 nil
func (c *LatestCache) Latest(_ context.Context, dev coremodel.DeviceID) (*coremodel.LatestReading, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.m[dev]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
