package app

import (
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/thirdparty"
)

const webhookQueueSize = 256

// NewWebhookSinkIfEnabled 配置了 webhookURL 时创建推送下游，否则返回 nil
func NewWebhookSinkIfEnabled(cfg cfgpkg.PushConfig, log *zap.Logger) *thirdparty.WebhookSink {
	if cfg.WebhookURL == "" {
		return nil
	}
	if cfg.Secret == "" {
		log.Warn("webhook secret is empty, requests are unsigned")
	}
	client := &http.Client{Timeout: cfg.Timeout}
	pusher := thirdparty.NewPusher(client, cfg.Secret, cfg.MaxRetries)
	log.Info("webhook push enabled",
		zap.String("url", cfg.WebhookURL),
		zap.Int("max_retries", cfg.MaxRetries))
	return thirdparty.NewWebhookSink(pusher, cfg.WebhookURL, webhookQueueSize, log)
}
