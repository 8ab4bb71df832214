package thirdparty

import (
	"errors"
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常推送
	BreakerOpen                         // 冷却期内直接丢弃
	BreakerHalfOpen                     // 冷却结束，放行一次试探
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// ErrBreakerOpen 熔断期内拒绝推送
var ErrBreakerOpen = errors.New("webhook circuit breaker is open")

// Breaker 连续失败达到阈值后暂停推送 cooldown，之后放行一次试探：
// 试探成功恢复，失败重新计时
type Breaker struct {
	mu        sync.Mutex
	state     BreakerState
	failures  int
	openedAt  time.Time
	tripCount int64

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	// OnStateChange 可选；持锁外调用
	OnStateChange func(from, to BreakerState)
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Call 受熔断保护执行 fn
func (b *Breaker) Call(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		from := b.transition(BreakerHalfOpen)
		b.mu.Unlock()
		b.notify(from, BreakerHalfOpen)
		return nil
	case BreakerHalfOpen:
		// 试探进行中
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	var from, to BreakerState
	changed := false
	if err == nil {
		b.failures = 0
		if b.state != BreakerClosed {
			from, to, changed = b.transition(BreakerClosed), BreakerClosed, true
		}
	} else {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			b.openedAt = b.now()
			if b.state != BreakerOpen {
				b.tripCount++
				from, to, changed = b.transition(BreakerOpen), BreakerOpen, true
			}
		}
	}
	b.mu.Unlock()
	if changed {
		b.notify(from, to)
	}
}

// transition 需持锁；返回原状态
func (b *Breaker) transition(to BreakerState) BreakerState {
	from := b.state
	b.state = to
	return from
}

func (b *Breaker) notify(from, to BreakerState) {
	if b.OnStateChange != nil && from != to {
		b.OnStateChange(from, to)
	}
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// TripCount 累计熔断次数
func (b *Breaker) TripCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripCount
}
