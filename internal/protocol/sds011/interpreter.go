package sds011

import (
	"encoding/binary"
	"fmt"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// Result 一帧的语义解释结果
type Result struct {
	Type coremodel.CoreEventType
	// HasDeviceID 为 false 时（未知命令字）不得更新会话目标地址
	HasDeviceID bool
	DeviceID    coremodel.DeviceID
	Measurement *coremodel.MeasurementPayload
	Info        *coremodel.InfoPayload
}

// Interpreter 将校验通过的帧映射为测量或提示事件
type Interpreter struct {
	msgs *Messages
}

// NewInterpreter msgs 为 nil 时使用默认文案
func NewInterpreter(msgs *Messages) *Interpreter {
	if msgs == nil {
		msgs = DefaultMessages()
	}
	return &Interpreter{msgs: msgs}
}

// Interpret 纯函数：不修改任何会话状态
func (in *Interpreter) Interpret(f *Frame) Result {
	switch f.Class {
	case ClassMeasurement:
		return Result{
			Type:        coremodel.EventMeasurement,
			HasDeviceID: true,
			DeviceID:    f.DeviceID(),
			Measurement: &coremodel.MeasurementPayload{
				PM25: float64(binary.LittleEndian.Uint16(f.Data[0:2])) / 10.0,
				PM10: float64(binary.LittleEndian.Uint16(f.Data[2:4])) / 10.0,
			},
		}
	case ClassReply:
		return Result{
			Type:        coremodel.EventInfo,
			HasDeviceID: true,
			DeviceID:    f.DeviceID(),
			Info:        in.reply(f),
		}
	default:
		return Result{
			Type: coremodel.EventInfo,
			Info: &coremodel.InfoPayload{
				Message: fmt.Sprintf(in.msgs.UnknownClass, f.Class),
				Class:   f.Class,
				Unknown: true,
			},
		}
	}
}

// reply 解析 0xC5 应答
//
//	data[0] 子命令  data[1] 0=查询 1=设置  data[2] 状态值  data[3] 保留
//	固件版本例外：data[1..3] = 年 月 日
func (in *Interpreter) reply(f *Frame) *coremodel.InfoPayload {
	sub := f.SubCommand()
	info := &coremodel.InfoPayload{Class: f.Class, SubCommand: &sub}
	op, value := f.Data[1], f.Data[2]

	switch sub {
	case SubReportingMode:
		info.Op = opName(op)
		if value == 0 {
			info.ReportingMode = string(ReportActive)
			info.Message = in.msgs.ActiveMode
		} else {
			info.ReportingMode = string(ReportQuery)
			info.Message = in.msgs.QueryMode
		}
	case SubDeviceID:
		id := uint16(f.DeviceID())
		info.Op = opName(OpSet)
		info.NewDeviceID = &id
		info.Message = fmt.Sprintf(in.msgs.NewDeviceID, id)
	case SubSleepWork:
		info.Op = opName(op)
		if value == 0 {
			info.WorkState = string(StateSleep)
			info.Message = in.msgs.SleepMode
		} else {
			info.WorkState = string(StateWork)
			info.Message = in.msgs.WorkMode
		}
	case SubFirmware:
		year, month, day := f.Data[1], f.Data[2], f.Data[3]
		info.Op = opName(OpQuery)
		info.Firmware = fmt.Sprintf("%02d-%02d-%02d", year, month, day)
		info.Message = fmt.Sprintf(in.msgs.Firmware, day, month, year)
	case SubWorkingPeriod:
		minutes := int(value)
		info.Op = opName(op)
		info.WorkingPeriodMin = &minutes
		if minutes == 0 {
			info.Message = in.msgs.ContinuousMode
		} else {
			info.Message = fmt.Sprintf(in.msgs.PeriodicMode, minutes-1)
		}
	default:
		info.Unknown = true
		info.Message = fmt.Sprintf(in.msgs.UnknownReply, sub)
	}
	return info
}

func opName(op byte) string {
	if op == OpSet {
		return "set"
	}
	return "query"
}
