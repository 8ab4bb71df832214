package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

var (
	// ErrNotConnected 串口未打开时拒绝写入
	ErrNotConnected = errors.New("serial port not connected")
	// ErrWriteTimeout 写队列已满且超时
	ErrWriteTimeout = errors.New("serial write queue timeout")
)

// Opener 打开一条字节流；生产环境为串口，测试中可返回 net.Pipe
type Opener func() (io.ReadWriteCloser, error)

// SerialOpener 以 8N1 打开串口
func SerialOpener(name string, baudRate int) Opener {
	return func() (io.ReadWriteCloser, error) {
		mode := &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(name, mode)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return port, nil
	}
}

// ListPorts 列出系统可用串口
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Port 串口连接：读循环按到达顺序回调，写入经由有序队列，出错后定时重连
type Port struct {
	name   string
	cfg    cfgpkg.SerialConfig
	open   Opener
	logger *zap.Logger
	writeC chan []byte

	onRead     func([]byte)
	onStatus   func(coremodel.LinkStatus, error)
	onRecvByte func(int)
	onSentByte func(int)

	mu      sync.RWMutex
	status  coremodel.LinkStatus
	lastErr error
}

// New 创建串口连接（尚未打开，调用 Run 后生效）
func New(cfg cfgpkg.SerialConfig, logger *zap.Logger) *Port {
	return NewWithOpener(cfg, SerialOpener(cfg.Port, cfg.BaudRate), logger)
}

// NewWithOpener 使用自定义 Opener
func NewWithOpener(cfg cfgpkg.SerialConfig, open Opener, logger *zap.Logger) *Port {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 64
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Port{
		name:   cfg.Port,
		cfg:    cfg,
		open:   open,
		logger: logger,
		writeC: make(chan []byte, cfg.WriteQueueSize),
		status: coremodel.LinkDisconnected,
	}
}

// SetOnRead 安装读取回调；在读循环内同步调用
func (p *Port) SetOnRead(h func([]byte)) { p.onRead = h }

// SetOnStatus 安装状态回调
func (p *Port) SetOnStatus(h func(coremodel.LinkStatus, error)) { p.onStatus = h }

// SetByteCounters 安装收发字节计数回调
func (p *Port) SetByteCounters(recv, sent func(int)) {
	p.onRecvByte = recv
	p.onSentByte = sent
}

// Name 串口设备名
func (p *Port) Name() string { return p.name }

// Status 当前连接状态与最近一次错误
func (p *Port) Status() (coremodel.LinkStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, p.lastErr
}

// Write 异步写入，受写队列与写超时影响
func (p *Port) Write(ctx context.Context, b []byte) error {
	if s, _ := p.Status(); !s.CanSend() {
		return ErrNotConnected
	}
	dup := make([]byte, len(b))
	copy(dup, b)

	timer := time.NewTimer(p.cfg.WriteTimeout)
	defer timer.Stop()
	select {
	case p.writeC <- dup:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

// Run 打开串口并保持连接直到 ctx 结束
func (p *Port) Run(ctx context.Context) error {
	for {
		p.setStatus(coremodel.LinkConnecting, nil)
		rwc, err := p.open()
		if err == nil {
			p.setStatus(coremodel.LinkConnected, nil)
			err = p.serve(ctx, rwc)
		}
		if ctx.Err() != nil {
			p.setStatus(coremodel.LinkDisconnected, nil)
			return nil
		}
		if err == nil {
			err = io.EOF
		}
		p.setStatus(coremodel.LinkError, err)

		timer := time.NewTimer(p.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.setStatus(coremodel.LinkDisconnected, nil)
			return nil
		case <-timer.C:
		}
	}
}

// serve 启动读/写循环，阻塞直至连接结束
func (p *Port) serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-connCtx.Done()
		_ = rwc.Close()
	}()
	go func() {
		defer wg.Done()
		p.writeLoop(connCtx, rwc, cancel)
	}()

	err := p.readLoop(rwc)
	cancel()
	wg.Wait()
	return err
}

func (p *Port) readLoop(r io.Reader) error {
	buf := make([]byte, p.cfg.ReadBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if p.onRecvByte != nil {
				p.onRecvByte(n)
			}
			if p.onRead != nil {
				p.onRead(buf[:n])
			}
		}
		if err != nil {
			return err
		}
	}
}

func (p *Port) writeLoop(ctx context.Context, w io.Writer, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-p.writeC:
			if _, err := w.Write(b); err != nil {
				p.logger.Error("serial write failed", zap.String("port", p.name), zap.Error(err))
				cancel()
				return
			}
			if p.onSentByte != nil {
				p.onSentByte(len(b))
			}
		}
	}
}

func (p *Port) setStatus(s coremodel.LinkStatus, err error) {
	p.mu.Lock()
	changed := p.status != s
	p.status = s
	p.lastErr = err
	p.mu.Unlock()

	switch s {
	case coremodel.LinkError:
		p.logger.Error("serial port error", zap.String("port", p.name), zap.Error(err),
			zap.Duration("retry_in", p.cfg.ReconnectDelay))
	case coremodel.LinkConnected:
		p.logger.Info("serial port connected", zap.String("port", p.name), zap.Int("baud", p.cfg.BaudRate))
	case coremodel.LinkDisconnected:
		if changed {
			p.logger.Info("serial port closed", zap.String("port", p.name))
		}
	}
	if p.onStatus != nil {
		p.onStatus(s, err)
	}
}
