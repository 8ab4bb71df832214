package sds011

import (
	"errors"
	"fmt"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// ErrInvalidParam 命令参数越界或取值非法
var ErrInvalidParam = errors.New("invalid command parameter")

// MaxWorkingPeriod 工作周期上限（分钟）
const MaxWorkingPeriod = 30

// ReportingMode 数据上报模式
type ReportingMode string

const (
	ReportActive ReportingMode = "active"
	ReportQuery  ReportingMode = "query"
)

func (m ReportingMode) code() (byte, error) {
	switch m {
	case ReportActive:
		return 0, nil
	case ReportQuery:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: reporting mode %q", ErrInvalidParam, string(m))
}

// WorkState 休眠/工作状态
type WorkState string

const (
	StateSleep WorkState = "sleep"
	StateWork  WorkState = "work"
)

func (s WorkState) code() (byte, error) {
	switch s {
	case StateSleep:
		return 0, nil
	case StateWork:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: work state %q", ErrInvalidParam, string(s))
}

// NewPayload 按固定布局填充 payload，其余字节保持 0
func NewPayload(sub, op, value byte, target coremodel.DeviceID) Payload {
	var p Payload
	p[offSub] = sub
	p[offOp] = op
	p[offValue] = value
	p[offTargetHi] = byte(target >> 8)
	p[offTargetLo] = byte(target)
	return p
}

// BuildCommand 组装 19 字节下行帧
func BuildCommand(p Payload) []byte {
	buf := make([]byte, 0, CommandFrameLen)
	buf = append(buf, Head, ClassCommand)
	buf = append(buf, p[:]...)
	buf = append(buf, CalculateChecksum(p[:]))
	buf = append(buf, Tail)
	return buf
}

// EncodeSetDataReportingMode 设置上报模式
func EncodeSetDataReportingMode(mode ReportingMode, target coremodel.DeviceID) ([]byte, error) {
	v, err := mode.code()
	if err != nil {
		return nil, err
	}
	return BuildCommand(NewPayload(SubReportingMode, OpSet, v, target)), nil
}

// EncodeGetDataReportingMode 查询上报模式
func EncodeGetDataReportingMode(target coremodel.DeviceID) []byte {
	return BuildCommand(NewPayload(SubReportingMode, OpQuery, 0, target))
}

// EncodeQueryData 查询一次测量数据（查询模式下使用）
func EncodeQueryData(target coremodel.DeviceID) []byte {
	return BuildCommand(NewPayload(SubQueryData, OpQuery, 0, target))
}

// EncodeSetDeviceID 修改设备地址，新地址高字节在前写入 payload[6..7]
// 注意：SDS011 数据手册的新地址位置为 payload[11..12]
func EncodeSetDeviceID(newID, target coremodel.DeviceID) []byte {
	p := NewPayload(SubDeviceID, OpQuery, 0, target)
	p[offNewIDHi] = byte(newID >> 8)
	p[offNewIDLo] = byte(newID)
	return BuildCommand(p)
}

// EncodeSetStatus 设置休眠/工作
func EncodeSetStatus(state WorkState, target coremodel.DeviceID) ([]byte, error) {
	v, err := state.code()
	if err != nil {
		return nil, err
	}
	return BuildCommand(NewPayload(SubSleepWork, OpSet, v, target)), nil
}

// EncodeGetStatus 查询休眠/工作状态
func EncodeGetStatus(target coremodel.DeviceID) []byte {
	return BuildCommand(NewPayload(SubSleepWork, OpQuery, 0, target))
}

// EncodeSetWorkingPeriod 设置工作周期
// minutes=0 连续工作；n 表示工作 30 秒、休眠 n*60-30 秒
func EncodeSetWorkingPeriod(minutes int, target coremodel.DeviceID) ([]byte, error) {
	if minutes < 0 || minutes > MaxWorkingPeriod {
		return nil, fmt.Errorf("%w: working period %d not in 0..%d", ErrInvalidParam, minutes, MaxWorkingPeriod)
	}
	return BuildCommand(NewPayload(SubWorkingPeriod, OpSet, byte(minutes), target)), nil
}

// EncodeGetWorkingPeriod 查询工作周期
func EncodeGetWorkingPeriod(target coremodel.DeviceID) []byte {
	return BuildCommand(NewPayload(SubWorkingPeriod, OpQuery, 0, target))
}

// EncodeCheckFirmwareVersion 查询固件版本
func EncodeCheckFirmwareVersion(target coremodel.DeviceID) []byte {
	return BuildCommand(NewPayload(SubFirmware, OpQuery, 0, target))
}
