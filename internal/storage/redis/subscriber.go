package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// CommandSubscriber 订阅命令频道，把 {command, parameter, deviceId} 转交给 CommandSource
type CommandSubscriber struct {
	client  *Client
	channel string
	target  driverapi.CommandSource
	logger  *zap.Logger
}

// NewCommandSubscriber 创建命令订阅者
func NewCommandSubscriber(c *Client, channel string, target driverapi.CommandSource, logger *zap.Logger) *CommandSubscriber {
	if channel == "" {
		channel = "sds011:commands"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandSubscriber{client: c, channel: channel, target: target, logger: logger}
}

// Run 阻塞订阅直到 ctx 结束
func (s *CommandSubscriber) Run(ctx context.Context) error {
	ps := s.client.Subscribe(ctx, s.channel)
	defer ps.Close()

	// 等待订阅确认
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("redis command subscriber started", zap.String("channel", s.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.HandleMessage(ctx, msg.Payload); err != nil {
				s.logger.Warn("redis command rejected",
					zap.String("payload", msg.Payload),
					zap.Error(err))
			}
		}
	}
}

// HandleMessage 解析单条命令消息并下发
func (s *CommandSubscriber) HandleMessage(ctx context.Context, payload string) error {
	var cmd coremodel.CoreCommand
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if cmd.Name == "" {
		return fmt.Errorf("decode command: missing command name")
	}
	return s.target.SendCoreCommand(ctx, &cmd)
}
