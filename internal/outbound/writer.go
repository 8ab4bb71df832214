package outbound

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/protocol/sds011"
)

// FrameWriter 底层写入（串口）
type FrameWriter interface {
	Write(ctx context.Context, b []byte) error
}

// Writer 限速的下行帧发送器，实现 sds011.OutboundSender
type Writer struct {
	dst     FrameWriter
	limiter *RateLimiter
	logger  *zap.Logger

	// OnThrottled 可选：帧被限速时回调（指标）
	OnThrottled func()
}

var _ sds011.OutboundSender = (*Writer)(nil)

// NewWriter 创建限速发送器
func NewWriter(dst FrameWriter, limiter *RateLimiter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dst: dst, limiter: limiter, logger: logger}
}

// Send 等待令牌后写入一帧；校验不通过的帧直接拒绝
func (w *Writer) Send(ctx context.Context, frame []byte) error {
	if err := sds011.VerifyCommand(frame); err != nil {
		return fmt.Errorf("refuse malformed frame: %w", err)
	}
	if w.limiter != nil {
		delayed, err := w.limiter.Wait(ctx)
		if err != nil {
			return err
		}
		if delayed {
			w.logger.Debug("outbound frame throttled", zap.String("frame", fmt.Sprintf("% X", frame)))
			if w.OnThrottled != nil {
				w.OnThrottled()
			}
		}
	}
	if err := w.dst.Write(ctx, frame); err != nil {
		return err
	}
	w.logger.Debug("outbound frame written", zap.String("frame", fmt.Sprintf("% X", frame)))
	return nil
}
