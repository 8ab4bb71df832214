package thirdparty

import (
	"github.com/google/uuid"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// EventType 事件类型
type EventType string

const (
	// EventMeasurement 颗粒物测量
	EventMeasurement EventType = "sds011.measurement"
	// EventInfo 应答/提示信息
	EventInfo EventType = "sds011.info"
)

// StandardEvent 推送给第三方的事件信封
type StandardEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	DeviceID  string    `json:"device_id"`
	Timestamp int64     `json:"timestamp"`

	Readings []coremodel.Reading    `json:"readings,omitempty"`
	Info     *coremodel.InfoPayload `json:"info,omitempty"`
}

// FromCoreEvent 核心事件转为推送信封；事件 ID 沿用核心事件 ID 以便接收方去重
func FromCoreEvent(ev *coremodel.CoreEvent) *StandardEvent {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	out := &StandardEvent{
		EventID:   id,
		DeviceID:  ev.DeviceID.String(),
		Timestamp: ev.OccurredAt.Unix(),
	}
	switch ev.Type {
	case coremodel.EventMeasurement:
		out.EventType = EventMeasurement
		out.Readings = ev.Measurement.Readings(ev.OccurredAt)
	default:
		out.EventType = EventInfo
		out.Info = ev.Info
	}
	return out
}
