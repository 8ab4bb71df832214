package health

import (
	"context"
	"time"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// LinkReporter 可报告链路状态的组件（serialport.Port）
type LinkReporter interface {
	Name() string
	Status() (coremodel.LinkStatus, error)
}

// SerialChecker 串口链路检查：已连接为健康，连接中为降级，其余不健康
type SerialChecker struct {
	link LinkReporter
}

func NewSerialChecker(link LinkReporter) *SerialChecker {
	return &SerialChecker{link: link}
}

func (c *SerialChecker) Name() string { return "serial" }

func (c *SerialChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	st, lastErr := c.link.Status()

	details := map[string]interface{}{
		"port":   c.link.Name(),
		"status": st.String(),
	}
	if lastErr != nil {
		details["last_error"] = lastErr.Error()
	}

	res := CheckResult{Details: details}
	switch st {
	case coremodel.LinkConnected:
		res.Status, res.Message = StatusHealthy, "ok"
	case coremodel.LinkConnecting:
		res.Status, res.Message = StatusDegraded, "reconnecting"
	default:
		res.Status, res.Message = StatusUnhealthy, st.ToInfo().Description
	}
	res.Latency = time.Since(start)
	return res
}
