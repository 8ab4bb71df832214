package sds011

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// Observer 解码过程观测钩子（Prometheus 实现见 internal/metrics）
type Observer interface {
	FrameDecoded(class byte)
	BytesDiscarded(reason string, n int)
	EventEmitted(ev *coremodel.CoreEvent)
}

// Adapter SDS011 适配器：流式切帧 -> 会话解释 -> 事件下发
type Adapter struct {
	mu       sync.Mutex
	decoder  *StreamDecoder
	session  *Session
	emitter  *EventEmitter
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// Option 适配器可选项
type Option func(*Adapter)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithObserver 设置指标观测
func WithObserver(o Observer) Option {
	return func(a *Adapter) { a.observer = o }
}

// WithClock 测试用时钟
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter 创建适配器；session 可与 CommandSource 共享
func NewAdapter(policy ResyncPolicy, session *Session, sink driverapi.EventSink, opts ...Option) *Adapter {
	a := &Adapter{
		decoder: NewStreamDecoder(policy),
		session: session,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.session == nil {
		a.session = NewSession(nil)
	}
	a.emitter = NewEventEmitter(sink, a.logger)
	a.decoder.OnDiscard = a.onDiscard
	return a
}

// Session 共享的协议会话
func (a *Adapter) Session() *Session { return a.session }

// ProcessBytes 处理一次串口投递：切帧、解释并逐帧发送事件
// 同一帧的设备地址在返回前已写入会话
func (a *Adapter) ProcessBytes(ctx context.Context, p []byte) []*coremodel.CoreEvent {
	a.mu.Lock()
	frames := a.decoder.Feed(p)
	a.mu.Unlock()

	events := make([]*coremodel.CoreEvent, 0, len(frames))
	for _, fr := range frames {
		ev := a.session.Apply(fr, a.now())
		if a.observer != nil {
			a.observer.FrameDecoded(fr.Class)
		}
		a.logger.Debug("sds011 frame decoded",
			zap.String("raw", fr.String()),
			zap.String("event_type", string(ev.Type)),
			zap.Stringer("device_id", ev.DeviceID))
		a.emitter.Emit(ctx, ev)
		if a.observer != nil {
			a.observer.EventEmitted(ev)
		}
		events = append(events, ev)
	}
	return events
}

// ResetBuffer 清空累积缓冲
func (a *Adapter) ResetBuffer() {
	a.mu.Lock()
	n := a.decoder.Buffered()
	a.decoder.Reset()
	a.mu.Unlock()
	a.logger.Info("sds011 buffer reset", zap.Int("dropped", n))
}

// Buffered 当前缓冲字节数
func (a *Adapter) Buffered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.decoder.Buffered()
}

// Policy 当前重同步策略
func (a *Adapter) Policy() ResyncPolicy { return a.decoder.Policy() }

func (a *Adapter) onDiscard(reason DiscardReason, n int) {
	a.logger.Debug("sds011 bytes discarded",
		zap.String("reason", string(reason)),
		zap.Int("bytes", n))
	if a.observer != nil {
		a.observer.BytesDiscarded(string(reason), n)
	}
}
