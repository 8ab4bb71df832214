package sds011

import (
	"bytes"
	"fmt"
	"strings"
)

// ResyncPolicy 校验失败 / 多帧粘包时的重同步策略
type ResyncPolicy int

const (
	// ResyncRescan 单次投递内循环切帧：失败时丢弃帧头后立即重新寻找 0xAA，
	// 成功时只消费 10 字节。输出与分包方式无关。
	ResyncRescan ResyncPolicy = iota
	// ResyncLegacy 兼容旧版行为：每次投递最多处理一帧，
	// 失败丢弃 10 字节，成功清空整个缓冲。
	ResyncLegacy
)

func (p ResyncPolicy) String() string {
	if p == ResyncLegacy {
		return "legacy"
	}
	return "rescan"
}

// ParseResyncPolicy 解析配置值：rescan | legacy
func ParseResyncPolicy(s string) (ResyncPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rescan":
		return ResyncRescan, nil
	case "legacy":
		return ResyncLegacy, nil
	}
	return ResyncRescan, fmt.Errorf("unknown resync policy %q", s)
}

// DiscardReason 丢弃原因，用于调试日志与指标
type DiscardReason string

const (
	DiscardNoHead   DiscardReason = "no_head"
	DiscardChecksum DiscardReason = "checksum"
	DiscardTail     DiscardReason = "tail"
	DiscardOverflow DiscardReason = "overflow"
)

// defaultMaxBuffered legacy 模式下缓冲上限，避免畸形数据无界增长
const defaultMaxBuffered = 4096

// StreamDecoder 处理半包/粘包/噪声的流式解码器
// 非并发安全：同一时间只应由一个读循环调用
type StreamDecoder struct {
	buf         []byte
	policy      ResyncPolicy
	maxBuffered int

	// OnDiscard 可选回调：每次丢弃字节时触发
	OnDiscard func(reason DiscardReason, n int)
}

// NewStreamDecoder 创建流式解码器
func NewStreamDecoder(policy ResyncPolicy) *StreamDecoder {
	return &StreamDecoder{policy: policy, maxBuffered: defaultMaxBuffered}
}

// Policy 返回当前策略
func (d *StreamDecoder) Policy() ResyncPolicy { return d.policy }

// Buffered 当前累积的字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }

// Reset 清空累积缓冲（宿主检测到失步时调用）
func (d *StreamDecoder) Reset() { d.buf = d.buf[:0] }

// Feed 追加一次投递的数据并返回本次解出的帧
func (d *StreamDecoder) Feed(p []byte) []*Frame {
	d.buf = append(d.buf, p...)
	if d.policy == ResyncLegacy {
		return d.feedLegacy()
	}
	return d.feedRescan()
}

func (d *StreamDecoder) feedRescan() []*Frame {
	var out []*Frame
	for {
		if !d.align() {
			return out
		}
		if len(d.buf) < ResponseFrameLen {
			// 半包，等待更多
			return out
		}
		fr, err := ParseFrame(d.buf[:ResponseFrameLen])
		if err != nil {
			// 丢弃帧头，下一轮从后续的 0xAA 重新同步
			d.discard(reasonOf(err), 1)
			continue
		}
		out = append(out, fr)
		d.consume(ResponseFrameLen)
	}
}

func (d *StreamDecoder) feedLegacy() []*Frame {
	if len(d.buf) > d.maxBuffered {
		d.discard(DiscardOverflow, len(d.buf))
		return nil
	}
	if !d.align() {
		return nil
	}
	if len(d.buf) < ResponseFrameLen {
		return nil
	}
	fr, err := ParseFrame(d.buf[:ResponseFrameLen])
	if err != nil {
		// 旧版行为：固定丢 10 字节，本次投递不再继续
		d.discard(reasonOf(err), ResponseFrameLen)
		// 提前对齐与下一次投递时再对齐结果一致
		d.align()
		return nil
	}
	// 旧版行为：成功后清空整个缓冲，多余字节一并丢弃
	if extra := len(d.buf) - ResponseFrameLen; extra > 0 {
		d.notify(DiscardOverflow, extra)
	}
	d.buf = d.buf[:0]
	return []*Frame{fr}
}

// align 保证缓冲为空或以 0xAA 开头；返回缓冲是否非空
func (d *StreamDecoder) align() bool {
	if len(d.buf) == 0 {
		return false
	}
	if d.buf[0] == Head {
		return true
	}
	start := bytes.IndexByte(d.buf, Head)
	if start < 0 {
		d.discard(DiscardNoHead, len(d.buf))
		return false
	}
	d.discard(DiscardNoHead, start)
	return true
}

func (d *StreamDecoder) discard(reason DiscardReason, n int) {
	if n > len(d.buf) {
		n = len(d.buf)
	}
	if n <= 0 {
		return
	}
	d.consume(n)
	d.notify(reason, n)
}

// consume 从头部移除 n 字节，复用底层数组
func (d *StreamDecoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}

func (d *StreamDecoder) notify(reason DiscardReason, n int) {
	if d.OnDiscard != nil {
		d.OnDiscard(reason, n)
	}
}

func reasonOf(err error) DiscardReason {
	if err == ErrBadTail {
		return DiscardTail
	}
	return DiscardChecksum
}
