package outbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/protocol/sds011"
)

type captureWriter struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (c *captureWriter) Write(_ context.Context, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, b)
	return nil
}

func TestWriter_Send(t *testing.T) {
	dst := &captureWriter{}
	w := NewWriter(dst, NewRateLimiter(1000, 10), zaptest.NewLogger(t))

	frame := sds011.EncodeQueryData(coremodel.BroadcastDeviceID)
	require.NoError(t, w.Send(context.Background(), frame))
	require.Len(t, dst.frames, 1)
	assert.Equal(t, frame, dst.frames[0])
}

func TestWriter_RejectsMalformed(t *testing.T) {
	dst := &captureWriter{}
	w := NewWriter(dst, nil, nil)

	frame := sds011.EncodeQueryData(coremodel.BroadcastDeviceID)
	frame[17] ^= 0xFF
	assert.ErrorIs(t, w.Send(context.Background(), frame), sds011.ErrChecksumMismatch)
	assert.Empty(t, dst.frames)
}

func TestWriter_PropagatesWriteError(t *testing.T) {
	boom := errors.New("not connected")
	w := NewWriter(&captureWriter{err: boom}, nil, nil)
	assert.ErrorIs(t, w.Send(context.Background(), sds011.EncodeGetStatus(1)), boom)
}

func TestWriter_Throttles(t *testing.T) {
	dst := &captureWriter{}
	throttled := 0
	w := NewWriter(dst, NewRateLimiter(50, 1), zaptest.NewLogger(t))
	w.OnThrottled = func() { throttled++ }

	frame := sds011.EncodeGetStatus(coremodel.BroadcastDeviceID)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Send(context.Background(), frame))
	}
	// 突发 1，后续两帧各等待约 20ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 2, throttled)
	assert.Len(t, dst.frames, 3)
}

func TestRateLimiter_ContextCancel(t *testing.T) {
	l := NewRateLimiter(0.5, 1)
	_, err := l.Wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	delayed, err := l.Wait(ctx)
	assert.True(t, delayed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, l.ThrottledCount())
	assert.EqualValues(t, 1, l.AllowedCount())
}
