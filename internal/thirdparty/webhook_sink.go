package thirdparty

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// WebhookSink 异步推送核心事件；队列满时丢弃并告警，不阻塞串口读循环
type WebhookSink struct {
	pusher   *Pusher
	endpoint string
	queue    chan *StandardEvent
	breaker  *Breaker
	logger   *zap.Logger
}

var _ driverapi.EventSink = (*WebhookSink)(nil)

// NewWebhookSink 创建推送下游
func NewWebhookSink(pusher *Pusher, endpoint string, queueSize int, logger *zap.Logger) *WebhookSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WebhookSink{
		pusher:   pusher,
		endpoint: endpoint,
		queue:    make(chan *StandardEvent, queueSize),
		logger:   logger,
	}
	s.SetBreaker(NewBreaker(5, 30*time.Second))
	return s
}

// SetBreaker 替换熔断器（测试中缩短冷却时间）
func (s *WebhookSink) SetBreaker(b *Breaker) {
	b.OnStateChange = func(from, to BreakerState) {
		s.logger.Warn("webhook circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("endpoint", s.endpoint))
	}
	s.breaker = b
}

// HandleCoreEvent implements driverapi.EventSink.
func (s *WebhookSink) HandleCoreEvent(_ context.Context, ev *coremodel.CoreEvent) error {
	if ev == nil {
		return nil
	}
	select {
	case s.queue <- FromCoreEvent(ev):
	default:
		s.logger.Warn("webhook queue full, event dropped",
			zap.String("event_id", ev.ID),
			zap.String("event_type", string(ev.Type)))
	}
	return nil
}

// Run 消费队列直到 ctx 结束
func (s *WebhookSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			var code int
			err := s.breaker.Call(func() error {
				var err error
				code, err = s.pusher.SendJSON(ctx, s.endpoint, ev)
				return err
			})
			if errors.Is(err, ErrBreakerOpen) {
				s.logger.Debug("webhook paused, event dropped", zap.String("event_id", ev.EventID))
				continue
			}
			if err != nil {
				s.logger.Error("webhook push failed",
					zap.String("event_id", ev.EventID),
					zap.Int("status", code),
					zap.Error(err))
				continue
			}
			s.logger.Debug("webhook pushed",
				zap.String("event_id", ev.EventID),
				zap.String("event_type", string(ev.EventType)))
		}
	}
}
