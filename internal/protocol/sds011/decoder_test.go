package sds011

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	measurementFrame = []byte{0xAA, 0xC0, 0x96, 0x00, 0x50, 0x00, 0x34, 0x0A, 0x24, 0xAB}
	badChecksumFrame = []byte{0xAA, 0xC0, 0x96, 0x00, 0x50, 0x00, 0x34, 0x0A, 0x2C, 0xAB}
)

// replyFrame 构造合法的 C5 应答帧
func replyFrame(data [6]byte) []byte {
	b := []byte{Head, ClassReply}
	b = append(b, data[:]...)
	b = append(b, CalculateChecksum(data[:]), Tail)
	return b
}

func rawOf(frames []*Frame) [][]byte {
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Raw())
	}
	return out
}

func TestStreamDecoder_SingleFrame(t *testing.T) {
	for _, policy := range []ResyncPolicy{ResyncRescan, ResyncLegacy} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewStreamDecoder(policy)
			frames := d.Feed(measurementFrame)
			require.Len(t, frames, 1)
			assert.Equal(t, ClassMeasurement, frames[0].Class)
			assert.Equal(t, measurementFrame, frames[0].Raw())
			assert.Equal(t, 0, d.Buffered())
		})
	}
}

func TestStreamDecoder_BadChecksumDropped(t *testing.T) {
	for _, policy := range []ResyncPolicy{ResyncRescan, ResyncLegacy} {
		t.Run(policy.String(), func(t *testing.T) {
			var reasons []DiscardReason
			d := NewStreamDecoder(policy)
			d.OnDiscard = func(r DiscardReason, n int) { reasons = append(reasons, r) }

			assert.Empty(t, d.Feed(badChecksumFrame))
			assert.Equal(t, 0, d.Buffered())
			assert.Contains(t, reasons, DiscardChecksum)
		})
	}
}

func TestStreamDecoder_LeadingNoise(t *testing.T) {
	for _, policy := range []ResyncPolicy{ResyncRescan, ResyncLegacy} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewStreamDecoder(policy)
			assert.Empty(t, d.Feed([]byte{0x00, 0x00}))
			assert.Equal(t, 0, d.Buffered())

			frames := d.Feed(measurementFrame)
			require.Len(t, frames, 1)
			assert.Equal(t, measurementFrame, frames[0].Raw())
		})
	}
}

func TestStreamDecoder_HalfFrame(t *testing.T) {
	for _, policy := range []ResyncPolicy{ResyncRescan, ResyncLegacy} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewStreamDecoder(policy)
			assert.Empty(t, d.Feed(measurementFrame[:4]))
			assert.Equal(t, 4, d.Buffered())
			frames := d.Feed(measurementFrame[4:])
			require.Len(t, frames, 1)
		})
	}
}

func TestStreamDecoder_BufferAlwaysAligned(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, policy := range []ResyncPolicy{ResyncRescan, ResyncLegacy} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewStreamDecoder(policy)
			for i := 0; i < 500; i++ {
				chunk := make([]byte, rng.Intn(16))
				rng.Read(chunk)
				d.Feed(chunk)
				if d.Buffered() > 0 {
					assert.Equal(t, Head, d.buf[0])
				}
			}
		})
	}
}

func TestStreamDecoderRescan_MultipleFramesInOneChunk(t *testing.T) {
	reply := replyFrame([6]byte{SubFirmware, 0x0F, 0x07, 0x0A, 0x34, 0x0A})
	stream := append(append([]byte{}, measurementFrame...), reply...)
	stream = append(stream, measurementFrame...)

	d := NewStreamDecoder(ResyncRescan)
	frames := d.Feed(stream)
	require.Len(t, frames, 3)
	assert.Equal(t, ClassReply, frames[1].Class)
	assert.Equal(t, 0, d.Buffered())
}

func TestStreamDecoderRescan_HeadInsideCorruptSpan(t *testing.T) {
	// 损坏帧后 3 字节即出现下一帧的帧头
	stream := append([]byte{0xAA, 0xC0, 0x01}, measurementFrame...)

	d := NewStreamDecoder(ResyncRescan)
	frames := d.Feed(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, measurementFrame, frames[0].Raw())
}

func TestStreamDecoderRescan_ChunkingInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var stream []byte
	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0:
			noise := make([]byte, rng.Intn(12))
			rng.Read(noise)
			stream = append(stream, noise...)
		case 1:
			stream = append(stream, badChecksumFrame...)
		case 2:
			var data [6]byte
			rng.Read(data[:])
			stream = append(stream, replyFrame(data)...)
		default:
			stream = append(stream, measurementFrame...)
		}
	}

	whole := NewStreamDecoder(ResyncRescan).Feed(stream)
	require.NotEmpty(t, whole)

	single := NewStreamDecoder(ResyncRescan)
	var bytewise []*Frame
	for _, b := range stream {
		bytewise = append(bytewise, single.Feed([]byte{b})...)
	}
	assert.Equal(t, rawOf(whole), rawOf(bytewise))

	chunked := NewStreamDecoder(ResyncRescan)
	var random []*Frame
	for rest := stream; len(rest) > 0; {
		n := 1 + rng.Intn(23)
		if n > len(rest) {
			n = len(rest)
		}
		random = append(random, chunked.Feed(rest[:n])...)
		rest = rest[n:]
	}
	assert.Equal(t, rawOf(whole), rawOf(random))
}

func TestStreamDecoderLegacy_OneFramePerDelivery(t *testing.T) {
	var dropped int
	d := NewStreamDecoder(ResyncLegacy)
	d.OnDiscard = func(r DiscardReason, n int) {
		if r == DiscardOverflow {
			dropped += n
		}
	}
	stream := append(append([]byte{}, measurementFrame...), measurementFrame...)

	frames := d.Feed(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, ResponseFrameLen, dropped)
}

func TestStreamDecoderLegacy_DropsTenBytesOnFailure(t *testing.T) {
	stream := append(append([]byte{}, badChecksumFrame...), measurementFrame...)

	d := NewStreamDecoder(ResyncLegacy)
	assert.Empty(t, d.Feed(stream))
	assert.Equal(t, ResponseFrameLen, d.Buffered())

	// 空投递同样触发一次检查
	frames := d.Feed(nil)
	require.Len(t, frames, 1)
	assert.Equal(t, measurementFrame, frames[0].Raw())
}

func TestStreamDecoderLegacy_Overflow(t *testing.T) {
	d := NewStreamDecoder(ResyncLegacy)
	d.maxBuffered = 32

	var overflow bool
	d.OnDiscard = func(r DiscardReason, n int) {
		if r == DiscardOverflow {
			overflow = true
		}
	}
	// 连续的坏帧每次只丢 10 字节，缓冲持续增长直到触发上限
	for i := 0; i < 10 && !overflow; i++ {
		d.Feed(append(append([]byte{}, badChecksumFrame...), badChecksumFrame...))
	}
	assert.True(t, overflow)
}

func TestStreamDecoder_Reset(t *testing.T) {
	d := NewStreamDecoder(ResyncRescan)
	d.Feed(measurementFrame[:6])
	require.Equal(t, 6, d.Buffered())
	d.Reset()
	assert.Equal(t, 0, d.Buffered())
}

func TestParseResyncPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ResyncPolicy
		wantErr bool
	}{
		{"", ResyncRescan, false},
		{"rescan", ResyncRescan, false},
		{" Legacy ", ResyncLegacy, false},
		{"strict", ResyncRescan, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResyncPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
