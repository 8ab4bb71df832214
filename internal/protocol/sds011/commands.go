package sds011

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// ErrUnknownCommand 命令名不在目录中
var ErrUnknownCommand = errors.New("unknown command")

// 命令名即宿主输入消息中的 command 字段
const (
	CmdSetDataReportingMode = "setDataReportingMode"
	CmdSetActive            = "setActive"
	CmdSetQuery             = "setQuery"
	CmdGetDataReportingMode = "getDataReportingMode"
	CmdQueryData            = "queryData"
	CmdSetDeviceID          = "setDeviceId"
	CmdSetStatus            = "setStatus"
	CmdSleep                = "sleep"
	CmdWork                 = "work"
	CmdGetStatus            = "getStatus"
	CmdSetWorkingPeriod     = "setWorkingPeriod"
	CmdSetContinuousMode    = "setContinuousMode"
	CmdGetWorkingPeriod     = "getWorkingPeriod"
	CmdCheckFirmwareVersion = "checkFirmwareVersion"
)

// ParamKind 命令参数类型
type ParamKind string

const (
	ParamNone          ParamKind = ""
	ParamReportingMode ParamKind = "active|query"
	ParamWorkState     ParamKind = "sleep|work"
	ParamMinutes       ParamKind = "minutes(0..30)"
	ParamDeviceID      ParamKind = "deviceId(uint16)"
)

// CommandSpec 目录条目
type CommandSpec struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Param       ParamKind `json:"param,omitempty"`
}

var catalog = []CommandSpec{
	{CmdSetDataReportingMode, "set data reporting mode", ParamReportingMode},
	{CmdSetActive, "force active reporting mode", ParamNone},
	{CmdSetQuery, "force query reporting mode", ParamNone},
	{CmdGetDataReportingMode, "get data reporting mode", ParamNone},
	{CmdQueryData, "query one measurement", ParamNone},
	{CmdSetDeviceID, "assign a new device id", ParamDeviceID},
	{CmdSetStatus, "set sleep/work status", ParamWorkState},
	{CmdSleep, "put the sensor to sleep", ParamNone},
	{CmdWork, "wake the sensor up", ParamNone},
	{CmdGetStatus, "get sleep/work status", ParamNone},
	{CmdSetWorkingPeriod, "set working period in minutes, 0 for continuous", ParamMinutes},
	{CmdSetContinuousMode, "force continuous working period", ParamNone},
	{CmdGetWorkingPeriod, "get working period", ParamNone},
	{CmdCheckFirmwareVersion, "check firmware version", ParamNone},
}

// Catalog 返回命令目录副本
func Catalog() []CommandSpec {
	out := make([]CommandSpec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup 按名称查找命令
func Lookup(name string) (CommandSpec, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return CommandSpec{}, false
}

// Encode 按命令名与字符串参数编码下行帧
func (s *Session) Encode(name, param string, target ...coremodel.DeviceID) ([]byte, error) {
	param = strings.TrimSpace(param)
	switch name {
	case CmdSetDataReportingMode:
		return s.SetDataReportingMode(ReportingMode(strings.ToLower(param)), target...)
	case CmdSetActive:
		return s.SetActive(target...), nil
	case CmdSetQuery:
		return s.SetQuery(target...), nil
	case CmdGetDataReportingMode:
		return s.GetDataReportingMode(target...), nil
	case CmdQueryData:
		return s.QueryData(target...), nil
	case CmdSetDeviceID:
		id, err := coremodel.ParseDeviceID(param)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return s.SetDeviceID(id, target...), nil
	case CmdSetStatus:
		return s.SetStatus(WorkState(strings.ToLower(param)), target...)
	case CmdSleep:
		return s.Sleep(target...), nil
	case CmdWork:
		return s.Work(target...), nil
	case CmdGetStatus:
		return s.GetStatus(target...), nil
	case CmdSetWorkingPeriod:
		minutes, err := strconv.Atoi(param)
		if err != nil {
			return nil, fmt.Errorf("%w: working period %q", ErrInvalidParam, param)
		}
		return s.SetWorkingPeriod(minutes, target...)
	case CmdSetContinuousMode:
		return s.SetContinuousMode(target...), nil
	case CmdGetWorkingPeriod:
		return s.GetWorkingPeriod(target...), nil
	case CmdCheckFirmwareVersion:
		return s.CheckFirmwareVersion(target...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}
