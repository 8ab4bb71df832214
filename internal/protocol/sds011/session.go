package sds011

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// Session 协议会话：持有当前目标设备地址，供编码与解释共享
// 每个物理传感器一个 Session
type Session struct {
	mu       sync.Mutex
	deviceID coremodel.DeviceID
	interp   *Interpreter
}

// NewSession 初始目标为广播地址
func NewSession(msgs *Messages) *Session {
	return &Session{deviceID: coremodel.BroadcastDeviceID, interp: NewInterpreter(msgs)}
}

// DeviceID 当前目标地址
func (s *Session) DeviceID() coremodel.DeviceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Reset 目标地址恢复为广播
func (s *Session) Reset() {
	s.mu.Lock()
	s.deviceID = coremodel.BroadcastDeviceID
	s.mu.Unlock()
}

// target 取显式目标，否则取当前会话目标
func (s *Session) target(t []coremodel.DeviceID) coremodel.DeviceID {
	if len(t) > 0 {
		return t[0]
	}
	return s.DeviceID()
}

// Apply 解释一帧并生成事件；帧内携带的设备地址成为后续命令的目标
func (s *Session) Apply(f *Frame, at time.Time) *coremodel.CoreEvent {
	res := s.interp.Interpret(f)

	s.mu.Lock()
	if res.HasDeviceID {
		s.deviceID = res.DeviceID
	}
	dev := s.deviceID
	s.mu.Unlock()

	return &coremodel.CoreEvent{
		ID:          uuid.NewString(),
		Type:        res.Type,
		DeviceID:    dev,
		OccurredAt:  at,
		Measurement: res.Measurement,
		Info:        res.Info,
	}
}

// SetDataReportingMode 设置上报模式；target 省略时使用当前目标
func (s *Session) SetDataReportingMode(mode ReportingMode, target ...coremodel.DeviceID) ([]byte, error) {
	return EncodeSetDataReportingMode(mode, s.target(target))
}

// SetActive 强制主动上报
func (s *Session) SetActive(target ...coremodel.DeviceID) []byte {
	b, _ := EncodeSetDataReportingMode(ReportActive, s.target(target))
	return b
}

// SetQuery 强制查询模式
func (s *Session) SetQuery(target ...coremodel.DeviceID) []byte {
	b, _ := EncodeSetDataReportingMode(ReportQuery, s.target(target))
	return b
}

func (s *Session) GetDataReportingMode(target ...coremodel.DeviceID) []byte {
	return EncodeGetDataReportingMode(s.target(target))
}

func (s *Session) QueryData(target ...coremodel.DeviceID) []byte {
	return EncodeQueryData(s.target(target))
}

func (s *Session) SetDeviceID(newID coremodel.DeviceID, target ...coremodel.DeviceID) []byte {
	return EncodeSetDeviceID(newID, s.target(target))
}

func (s *Session) SetStatus(state WorkState, target ...coremodel.DeviceID) ([]byte, error) {
	return EncodeSetStatus(state, s.target(target))
}

// Sleep 进入休眠
func (s *Session) Sleep(target ...coremodel.DeviceID) []byte {
	b, _ := EncodeSetStatus(StateSleep, s.target(target))
	return b
}

// Work 恢复工作
func (s *Session) Work(target ...coremodel.DeviceID) []byte {
	b, _ := EncodeSetStatus(StateWork, s.target(target))
	return b
}

func (s *Session) GetStatus(target ...coremodel.DeviceID) []byte {
	return EncodeGetStatus(s.target(target))
}

func (s *Session) SetWorkingPeriod(minutes int, target ...coremodel.DeviceID) ([]byte, error) {
	return EncodeSetWorkingPeriod(minutes, s.target(target))
}

// SetContinuousMode 工作周期置 0（连续工作）
func (s *Session) SetContinuousMode(target ...coremodel.DeviceID) []byte {
	b, _ := EncodeSetWorkingPeriod(0, s.target(target))
	return b
}

func (s *Session) GetWorkingPeriod(target ...coremodel.DeviceID) []byte {
	return EncodeGetWorkingPeriod(s.target(target))
}

func (s *Session) CheckFirmwareVersion(target ...coremodel.DeviceID) []byte {
	return EncodeCheckFirmwareVersion(s.target(target))
}
