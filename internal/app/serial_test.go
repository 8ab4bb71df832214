package app

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

var measurementFrame = []byte{0xAA, 0xC0, 0x96, 0x00, 0x50, 0x00, 0x34, 0x0A, 0x24, 0xAB}

func pipelineConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		Serial: cfgpkg.SerialConfig{
			Port:           "pipe",
			BaudRate:       9600,
			ReadBufferSize: 3,
			ReconnectDelay: 20 * time.Millisecond,
			WriteTimeout:   200 * time.Millisecond,
			WriteQueueSize: 8,
		},
		Protocol: cfgpkg.ProtocolConfig{
			Resync:            "rescan",
			ProbeAfterCommand: true,
			CommandRate:       100,
			CommandBurst:      10,
		},
	}
}

func TestSerialPipeline_EndToEnd(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	_, appm := NewMetrics()
	cache := NewLatestCache()
	p, err := NewSerialPipeline(pipelineConfig(), nil, cache, appm,
		func() (io.ReadWriteCloser, error) { return local, nil }, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Port.Run(ctx) }()
	require.Eventually(t, func() bool {
		s, _ := p.Port.Status()
		return s == coremodel.LinkConnected
	}, time.Second, 5*time.Millisecond)

	// 上行：噪声 + 测量帧，读缓冲 3 字节时分多次投递
	_, err = remote.Write(append([]byte{0x00, 0x00}, measurementFrame...))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		r, _ := cache.Latest(ctx, 0x0A34)
		return r != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, coremodel.DeviceID(0x0A34), p.Adapter.Session().DeviceID())

	// 下行：命令 + 固件探测，目标为已学到的设备地址
	require.NoError(t, p.Commands.SendCoreCommand(ctx, &coremodel.CoreCommand{Name: "sleep"}))
	buf := make([]byte, 38)
	_, err = io.ReadFull(remote, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x06), buf[2])
	assert.Equal(t, []byte{0x0A, 0x34}, buf[15:17])
	assert.Equal(t, byte(0x07), buf[19+2])
	assert.Equal(t, []byte{0x0A, 0x34}, buf[19+15:19+17])

	assert.Equal(t, 1.0, testutil.ToFloat64(appm.FramesTotal.WithLabelValues("0xC0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(appm.DiscardedBytes.WithLabelValues("no_head")))
	assert.Equal(t, 1.0, testutil.ToFloat64(appm.SerialConnected))
	assert.Equal(t, 12.0, testutil.ToFloat64(appm.SerialBytesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(appm.CommandsTotal.WithLabelValues("sleep", "ok")))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(appm.SerialBytesSent) == 38
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0.0, testutil.ToFloat64(appm.SerialConnected))
}

func TestSerialPipeline_InvalidResync(t *testing.T) {
	cfg := pipelineConfig()
	cfg.Protocol.Resync = "bogus"
	_, err := NewSerialPipeline(cfg, nil, NewLatestCache(), nil, nil, nil)
	assert.Error(t, err)
}

func TestSerialPipeline_ProbeDisabled(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	cfg := pipelineConfig()
	cfg.Protocol.ProbeAfterCommand = false
	p, err := NewSerialPipeline(cfg, nil, NewLatestCache(), nil,
		func() (io.ReadWriteCloser, error) { return local, nil }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Port.Run(ctx) }()
	require.Eventually(t, func() bool {
		s, _ := p.Port.Status()
		return s == coremodel.LinkConnected
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Commands.SendCoreCommand(ctx, &coremodel.CoreCommand{Name: "work"}))
	buf := make([]byte, 19)
	_, err = io.ReadFull(remote, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x06), buf[2])
	assert.Equal(t, []byte{0xFF, 0xFF}, buf[15:17])

	// 不应再有探测帧
	_ = remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err = remote.Read(make([]byte, 1))
	assert.Error(t, err)
}
