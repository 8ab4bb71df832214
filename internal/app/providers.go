package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/httpserver"
	"github.com/taoyao-code/sds011-gateway/internal/metrics"
	"github.com/taoyao-code/sds011-gateway/internal/protocol/sds011"
)

// NewMetrics 初始化注册表与应用指标
func NewMetrics() (*prometheus.Registry, *metrics.AppMetrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewAppMetrics(reg)
}

// NewHTTPServer 根据配置创建 HTTP 服务器；指标关闭时不挂载指标路由
func NewHTTPServer(cfg *cfgpkg.Config, metricsHandler http.Handler, readyFn func() bool) *httpserver.Server {
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	return httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, readyFn)
}

// LoadMessages 读取应答文案；未配置或读取失败时使用默认文案
func LoadMessages(path string, log *zap.Logger) *sds011.Messages {
	if path == "" {
		return sds011.DefaultMessages()
	}
	msgs, err := sds011.LoadMessages(path)
	if err != nil {
		log.Warn("load messages failed, using defaults", zap.String("path", path), zap.Error(err))
		return sds011.DefaultMessages()
	}
	log.Info("messages loaded", zap.String("path", path))
	return msgs
}
