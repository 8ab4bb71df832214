package sds011

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
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*coremodel.CoreEvent
	err    error
}

func (r *recordingSink) HandleCoreEvent(_ context.Context, ev *coremodel.CoreEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type countingObserver struct {
	frames    int
	discarded map[string]int
	events    int
}

func (o *countingObserver) FrameDecoded(byte) { o.frames++ }
func (o *countingObserver) BytesDiscarded(reason string, n int) {
	if o.discarded == nil {
		o.discarded = map[string]int{}
	}
	o.discarded[reason] += n
}
func (o *countingObserver) EventEmitted(*coremodel.CoreEvent) { o.events++ }

func TestAdapter_ProcessBytes(t *testing.T) {
	sink := &recordingSink{}
	obs := &countingObserver{}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAdapter(ResyncRescan, nil, sink,
		WithLogger(zaptest.NewLogger(t)),
		WithObserver(obs),
		WithClock(func() time.Time { return at }))

	events := a.ProcessBytes(context.Background(), []byte{0x00, 0x00})
	assert.Empty(t, events)

	events = a.ProcessBytes(context.Background(), measurementFrame)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, coremodel.EventMeasurement, ev.Type)
	assert.Equal(t, at, ev.OccurredAt)
	assert.Equal(t, 15.0, ev.Measurement.PM25)
	assert.Equal(t, 8.0, ev.Measurement.PM10)
	assert.Equal(t, coremodel.DeviceID(0x0A34), a.Session().DeviceID())

	require.Len(t, sink.events, 1)
	assert.Same(t, ev, sink.events[0])
	assert.Equal(t, 1, obs.frames)
	assert.Equal(t, 1, obs.events)
	assert.Equal(t, 2, obs.discarded[string(DiscardNoHead)])
}

func TestAdapter_BadChecksumEmitsNothing(t *testing.T) {
	sink := &recordingSink{}
	a := NewAdapter(ResyncRescan, nil, sink)

	assert.Empty(t, a.ProcessBytes(context.Background(), badChecksumFrame))
	assert.Empty(t, sink.events)
	assert.Equal(t, 0, a.Buffered())
}

func TestAdapter_SinkErrorDoesNotStopDecoding(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	a := NewAdapter(ResyncRescan, nil, sink, WithLogger(zaptest.NewLogger(t)))

	stream := append(append([]byte{}, measurementFrame...), measurementFrame...)
	assert.Len(t, a.ProcessBytes(context.Background(), stream), 2)
	assert.Len(t, sink.events, 2)
}

func TestAdapter_NilSink(t *testing.T) {
	a := NewAdapter(ResyncLegacy, nil, nil, WithLogger(zaptest.NewLogger(t)))
	assert.Len(t, a.ProcessBytes(context.Background(), measurementFrame), 1)
	assert.Equal(t, ResyncLegacy, a.Policy())
}

func TestAdapter_ResetBuffer(t *testing.T) {
	a := NewAdapter(ResyncRescan, nil, driverapi.EventSinkFunc(func(context.Context, *coremodel.CoreEvent) error {
		return nil
	}))
	a.ProcessBytes(context.Background(), measurementFrame[:7])
	require.Equal(t, 7, a.Buffered())

	a.ResetBuffer()
	assert.Equal(t, 0, a.Buffered())
	// 残留半帧被清除后，下一帧完整到达可正常解出
	assert.Len(t, a.ProcessBytes(context.Background(), measurementFrame), 1)
}
