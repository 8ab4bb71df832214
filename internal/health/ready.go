package health

import (
	"context"
	"sync/atomic"
)

// Readiness 启动阶段就绪标记：串口读循环已启动、已启用的存储已连通
type Readiness struct {
	serialReady atomic.Bool
	storeReady  atomic.Bool
}

// New 存储默认视为就绪（未启用任何存储时无需等待）
func New() *Readiness {
	r := &Readiness{}
	r.storeReady.Store(true)
	return r
}

func (r *Readiness) SetSerialReady(v bool) { r.serialReady.Store(v) }
func (r *Readiness) SetStoreReady(v bool)  { r.storeReady.Store(v) }

// Ready 各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.serialReady.Load() && r.storeReady.Load()
}

// Checker 以 Readiness 作为一项检查挂入 Aggregator
func (r *Readiness) Checker() Checker {
	return CheckerFunc{
		CheckerName: "startup",
		Fn: func(_ context.Context) CheckResult {
			if r.Ready() {
				return CheckResult{Status: StatusHealthy, Message: "ok"}
			}
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: "starting",
				Details: map[string]interface{}{
					"serial": r.serialReady.Load(),
					"store":  r.storeReady.Load(),
				},
			}
		},
	}
}
