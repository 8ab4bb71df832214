package coremodel

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeviceID 传感器 16 位设备地址
type DeviceID uint16

// BroadcastDeviceID 广播地址：所有传感器都会响应
const BroadcastDeviceID DeviceID = 0xFFFF

// String 以 0x%04X 形式输出
func (d DeviceID) String() string { return fmt.Sprintf("0x%04X", uint16(d)) }

// IsBroadcast 是否为广播地址
func (d DeviceID) IsBroadcast() bool { return d == BroadcastDeviceID }

// ParseDeviceID 解析设备地址，支持十进制与 0x 前缀十六进制
func ParseDeviceID(s string) (DeviceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty device id")
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	return DeviceID(v), nil
}

// MarshalJSON 输出为 "0x0A34" 字符串
func (d DeviceID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON 同时接受数字与字符串（十进制或 0x 十六进制）
func (d *DeviceID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = u
	}
	v, err := ParseDeviceID(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// CoreEventType 规范化事件类型
type CoreEventType string

const (
	EventMeasurement CoreEventType = "Measurement"
	EventInfo        CoreEventType = "Info"
)

// MeasurementPayload 颗粒物浓度（ug/m3）
type MeasurementPayload struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
}

// Reading 单通道读数，与原宿主节点的 PM2_5 / PM10 输出保持一致
type Reading struct {
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	Time        time.Time `json:"time"`
}

// Readings 拆分为 measurement-1 / measurement-2 两路输出
func (m *MeasurementPayload) Readings(at time.Time) []Reading {
	if m == nil {
		return nil
	}
	return []Reading{
		{Topic: "PM2_5", Title: "PM2.5 value", Description: "PM2.5 value in ug/m3", Value: m.PM25, Time: at},
		{Topic: "PM10", Title: "PM10 value", Description: "PM10 value in ug/m3", Value: m.PM10, Time: at},
	}
}

// InfoPayload 应答/提示信息（第三路输出）
// 结构化字段只在对应子命令的应答里填充
type InfoPayload struct {
	Message          string  `json:"message"`
	Class            uint8   `json:"class"`
	SubCommand       *uint8  `json:"subCommand,omitempty"`
	Op               string  `json:"op,omitempty"` // query | set
	Unknown          bool    `json:"unknown,omitempty"`
	ReportingMode    string  `json:"reportingMode,omitempty"` // active | query
	WorkState        string  `json:"workState,omitempty"`     // sleep | work
	WorkingPeriodMin *int    `json:"workingPeriodMin,omitempty"`
	Firmware         string  `json:"firmware,omitempty"` // yy-mm-dd
	NewDeviceID      *uint16 `json:"newDeviceId,omitempty"`
}

// CoreEvent 驱动 -> 宿主 的标准事件
type CoreEvent struct {
	ID          string              `json:"id"`
	Type        CoreEventType       `json:"type"`
	DeviceID    DeviceID            `json:"deviceId"`
	OccurredAt  time.Time           `json:"occurredAt"`
	Measurement *MeasurementPayload `json:"measurement,omitempty"`
	Info        *InfoPayload        `json:"info,omitempty"`
}

// LatestReading 设备最新一次测量
type LatestReading struct {
	DeviceID DeviceID  `json:"deviceId"`
	PM25     float64   `json:"pm25"`
	PM10     float64   `json:"pm10"`
	At       time.Time `json:"at"`
}

// CoreCommand 宿主 -> 驱动 的标准命令
// Name 取值见 sds011.Catalog；Target 为空时使用会话当前目标
type CoreCommand struct {
	ID        string    `json:"id"`
	Name      string    `json:"command"`
	Parameter string    `json:"parameter,omitempty"`
	Target    *DeviceID `json:"deviceId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
}
