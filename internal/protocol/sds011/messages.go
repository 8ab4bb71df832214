package sds011

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Messages 应答描述文案，可用 YAML 覆盖（例如本地化）
// 带 %d/%s/%X 的条目按 fmt 规则格式化
type Messages struct {
	ActiveMode     string `yaml:"activeMode"`
	QueryMode      string `yaml:"queryMode"`
	NewDeviceID    string `yaml:"newDeviceId"` // %04X
	SleepMode      string `yaml:"sleepMode"`
	WorkMode       string `yaml:"workMode"`
	Firmware       string `yaml:"firmware"` // day, month, year
	ContinuousMode string `yaml:"continuousMode"`
	PeriodicMode   string `yaml:"periodicMode"` // 休眠分钟数 n-1
	UnknownReply   string `yaml:"unknownReply"` // %02X 子命令
	UnknownClass   string `yaml:"unknownClass"` // %x 命令字
}

// DefaultMessages 返回默认英文文案
func DefaultMessages() *Messages {
	return &Messages{
		ActiveMode:     "Sensor is in active mode",
		QueryMode:      "Sensor is in query mode",
		NewDeviceID:    "Sensor has a new Device ID: 0x%04X",
		SleepMode:      "Sensor is in sleep mode",
		WorkMode:       "Sensor is in work mode",
		Firmware:       "Firmware: %d.%d.%d",
		ContinuousMode: "Sensor is in continuous mode",
		PeriodicMode:   "Sensor works 30 seconds and sleeps for %d minutes and 30 seconds.",
		UnknownReply:   "received an unknown reply: 0x%02X",
		UnknownClass:   "received a unknown command: %x",
	}
}

// LoadMessages 从 YAML 文件读取文案；缺省字段回退到默认值
func LoadMessages(path string) (*Messages, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	var m Messages
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	out := DefaultMessages()
	out.Merge(&m)
	return out, nil
}

// Merge 用 other 中的非空字段覆盖当前文案
func (m *Messages) Merge(other *Messages) {
	if m == nil || other == nil {
		return
	}
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&m.ActiveMode, other.ActiveMode)
	pick(&m.QueryMode, other.QueryMode)
	pick(&m.NewDeviceID, other.NewDeviceID)
	pick(&m.SleepMode, other.SleepMode)
	pick(&m.WorkMode, other.WorkMode)
	pick(&m.Firmware, other.Firmware)
	pick(&m.ContinuousMode, other.ContinuousMode)
	pick(&m.PeriodicMode, other.PeriodicMode)
	pick(&m.UnknownReply, other.UnknownReply)
	pick(&m.UnknownClass, other.UnknownClass)
}
