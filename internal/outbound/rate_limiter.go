package outbound

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrBurstExceeded burst 为 0 等无法取得令牌的配置
var ErrBurstExceeded = errors.New("rate limiter: reservation not allowed")

// RateLimiter 基于 Token Bucket 的下行限速器
type RateLimiter struct {
	limiter        *rate.Limiter
	allowedCount   atomic.Int64
	throttledCount atomic.Int64
}

// NewRateLimiter 创建限速器
// perSec: 每秒允许的帧数；burst: 突发容量
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	if perSec <= 0 {
		perSec = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Wait 阻塞直到取得令牌；delayed 表示本次被限速
func (l *RateLimiter) Wait(ctx context.Context) (delayed bool, err error) {
	r := l.limiter.Reserve()
	if !r.OK() {
		return false, ErrBurstExceeded
	}
	d := r.Delay()
	if d == 0 {
		l.allowedCount.Add(1)
		return false, nil
	}
	l.throttledCount.Add(1)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return true, ctx.Err()
	case <-timer.C:
		l.allowedCount.Add(1)
		return true, nil
	}
}

// AllowedCount 已放行的帧数（累计）
func (l *RateLimiter) AllowedCount() int64 { return l.allowedCount.Load() }

// ThrottledCount 被延迟的帧数（累计）
func (l *RateLimiter) ThrottledCount() int64 { return l.throttledCount.Load() }
