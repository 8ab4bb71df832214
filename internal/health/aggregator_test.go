package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

type fakeLink struct {
	status coremodel.LinkStatus
	err    error
}

func (f *fakeLink) Name() string                          { return "/dev/ttyUSB0" }
func (f *fakeLink) Status() (coremodel.LinkStatus, error) { return f.status, f.err }

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"db", StatusHealthy},
			&mockChecker{"serial", StatusHealthy},
		)
		assert.Equal(t, StatusHealthy, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("部分降级仍就绪", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"db", StatusHealthy},
			&mockChecker{"serial", StatusDegraded},
		)
		assert.Equal(t, StatusDegraded, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("任一不健康即不就绪", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"db", StatusDegraded},
			&mockChecker{"serial", StatusUnhealthy},
		)
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(ctx))
		assert.False(t, agg.Ready(ctx))
	})

	t.Run("CheckAll并发执行", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"check1", StatusHealthy},
			&mockChecker{"check2", StatusHealthy},
			&mockChecker{"check3", StatusHealthy},
		)
		results := agg.CheckAll(ctx)
		require.Len(t, results, 3)
		for name, r := range results {
			assert.Equal(t, StatusHealthy, r.Status, name)
		}
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})
		assert.Len(t, agg.CheckAll(ctx), 2)
	})

	t.Run("单项检查超时", func(t *testing.T) {
		agg := NewAggregator(CheckerFunc{
			CheckerName: "slow",
			Fn: func(ctx context.Context) CheckResult {
				<-ctx.Done()
				return CheckResult{Status: StatusUnhealthy, Message: ctx.Err().Error()}
			},
		})
		agg.SetTimeout(20 * time.Millisecond)
		r := agg.CheckAll(ctx)["slow"]
		assert.Equal(t, StatusUnhealthy, r.Status)
		assert.Equal(t, context.DeadlineExceeded.Error(), r.Message)
	})

	t.Run("Alive始终返回true", func(t *testing.T) {
		assert.True(t, NewAggregator().Alive())
	})
}

func TestSerialChecker(t *testing.T) {
	cases := []struct {
		name   string
		link   *fakeLink
		expect Status
	}{
		{"已连接", &fakeLink{status: coremodel.LinkConnected}, StatusHealthy},
		{"重连中", &fakeLink{status: coremodel.LinkConnecting}, StatusDegraded},
		{"已断开", &fakeLink{status: coremodel.LinkDisconnected}, StatusUnhealthy},
		{"错误", &fakeLink{status: coremodel.LinkError, err: errors.New("no such device")}, StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewSerialChecker(tc.link).Check(context.Background())
			assert.Equal(t, tc.expect, r.Status)
			assert.Equal(t, "/dev/ttyUSB0", r.Details["port"])
			if tc.link.err != nil {
				assert.Equal(t, "no such device", r.Details["last_error"])
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready(), "串口未启动时不就绪")

	r.SetSerialReady(true)
	assert.True(t, r.Ready())
	assert.Equal(t, StatusHealthy, r.Checker().Check(context.Background()).Status)

	r.SetStoreReady(false)
	assert.False(t, r.Ready())
	res := r.Checker().Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, false, res.Details["store"])
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	link := &fakeLink{status: coremodel.LinkConnected}
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(NewSerialChecker(link)))

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do("/health/ready").Code)
	assert.Equal(t, http.StatusOK, do("/health/live").Code)
	w := do("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"serial"`)

	link.status = coremodel.LinkError
	assert.Equal(t, http.StatusServiceUnavailable, do("/health/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do("/health").Code)
	assert.Equal(t, http.StatusOK, do("/health/live").Code)
}
