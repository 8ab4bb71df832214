package sds011

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// OutboundSender 下行帧发送接口（由串口写队列实现）
type OutboundSender interface {
	Send(ctx context.Context, frame []byte) error
}

// CommandSource 实现 driverapi.CommandSource，将核心命令映射为 SDS011 下行帧
type CommandSource struct {
	session  *Session
	outbound OutboundSender
	log      *zap.Logger

	// ProbeAfterCommand 每条命令后追加一次固件查询，促使传感器应答以获知设备地址
	ProbeAfterCommand bool
}

var _ driverapi.CommandSource = (*CommandSource)(nil)

// NewCommandSource 创建 CommandSource
func NewCommandSource(session *Session, outbound OutboundSender, log *zap.Logger) *CommandSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandSource{session: session, outbound: outbound, log: log, ProbeAfterCommand: true}
}

// SendCoreCommand implements driverapi.CommandSource.
func (c *CommandSource) SendCoreCommand(ctx context.Context, cmd *coremodel.CoreCommand) error {
	if cmd == nil {
		return nil
	}
	if c.outbound == nil {
		return fmt.Errorf("sds011 command source: outbound sender not configured")
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}

	dst := c.session.DeviceID()
	if cmd.Target != nil {
		dst = *cmd.Target
	}
	frame, err := c.session.Encode(cmd.Name, cmd.Parameter, dst)
	if err != nil {
		c.log.Warn("sds011 command source: encode failed",
			zap.String("command", cmd.Name),
			zap.String("parameter", cmd.Parameter),
			zap.Error(err))
		return err
	}
	if err := c.outbound.Send(ctx, frame); err != nil {
		return fmt.Errorf("send command %s: %w", cmd.Name, err)
	}
	c.log.Info("sds011 command source: command dispatched",
		zap.String("command_id", cmd.ID),
		zap.String("command", cmd.Name),
		zap.String("parameter", cmd.Parameter),
		zap.Stringer("device_id", dst),
		zap.Bool("broadcast", dst.IsBroadcast()),
		zap.String("frame", fmt.Sprintf("% X", frame)))

	if !c.ProbeAfterCommand || cmd.Name == CmdCheckFirmwareVersion {
		return nil
	}
	probe := c.session.CheckFirmwareVersion()
	if err := c.outbound.Send(ctx, probe); err != nil {
		return fmt.Errorf("send firmware probe: %w", err)
	}
	return nil
}
