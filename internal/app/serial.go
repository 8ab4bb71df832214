package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
	"github.com/taoyao-code/sds011-gateway/internal/metrics"
	"github.com/taoyao-code/sds011-gateway/internal/outbound"
	"github.com/taoyao-code/sds011-gateway/internal/protocol/sds011"
	"github.com/taoyao-code/sds011-gateway/internal/serialport"
)

// SerialPipeline 串口上行 -> Adapter -> 事件；命令 -> 限速 Writer -> 串口
type SerialPipeline struct {
	Port     *serialport.Port
	Adapter  *sds011.Adapter
	Writer   *outbound.Writer
	Commands driverapi.CommandSource
}

// NewSerialPipeline 组装串口链路；open 为 nil 时打开配置中的真实串口
func NewSerialPipeline(
	cfg *cfgpkg.Config,
	msgs *sds011.Messages,
	sink driverapi.EventSink,
	appm *metrics.AppMetrics,
	open serialport.Opener,
	log *zap.Logger,
) (*SerialPipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := sds011.ParseResyncPolicy(cfg.Protocol.Resync)
	if err != nil {
		return nil, err
	}

	var port *serialport.Port
	if open == nil {
		port = serialport.New(cfg.Serial, log)
	} else {
		port = serialport.NewWithOpener(cfg.Serial, open, log)
	}

	sess := sds011.NewSession(msgs)
	opts := []sds011.Option{sds011.WithLogger(log)}
	if appm != nil {
		opts = append(opts, sds011.WithObserver(appm))
	}
	adapter := sds011.NewAdapter(policy, sess, sink, opts...)

	limiter := outbound.NewRateLimiter(cfg.Protocol.CommandRate, cfg.Protocol.CommandBurst)
	writer := outbound.NewWriter(port, limiter, log)

	cs := sds011.NewCommandSource(sess, writer, log)
	cs.ProbeAfterCommand = cfg.Protocol.ProbeAfterCommand

	// 读回调在串口读循环内同步执行，保证按到达顺序解码
	port.SetOnRead(func(p []byte) {
		adapter.ProcessBytes(context.Background(), p)
	})
	port.SetOnStatus(func(s coremodel.LinkStatus, _ error) {
		if s == coremodel.LinkConnected {
			// 新连接不接续旧连接残留的半帧
			adapter.ResetBuffer()
		}
		if appm != nil {
			appm.LinkChanged(s)
		}
	})
	if appm != nil {
		port.SetByteCounters(
			func(n int) { appm.SerialBytesReceived.Add(float64(n)) },
			func(n int) { appm.SerialBytesSent.Add(float64(n)) },
		)
		writer.OnThrottled = appm.CommandsThrottled.Inc
	}

	log.Info("serial pipeline ready",
		zap.String("port", cfg.Serial.Port),
		zap.Int("baud_rate", cfg.Serial.BaudRate),
		zap.String("resync", policy.String()),
		zap.Bool("probe_after_command", cs.ProbeAfterCommand),
		zap.Float64("command_rate", cfg.Protocol.CommandRate))

	return &SerialPipeline{
		Port:     port,
		Adapter:  adapter,
		Writer:   writer,
		Commands: WithCommandMetrics(cs, appm),
	}, nil
}
