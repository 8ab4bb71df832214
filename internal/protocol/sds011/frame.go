package sds011

import (
	"encoding/binary"
	"fmt"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// 帧格式
//
//	下行: AA | B4 | payload(15) | checksum | AB
//	上行: AA | C0/C5 | data(6) | checksum | AB
const (
	Head byte = 0xAA
	Tail byte = 0xAB

	ClassCommand     byte = 0xB4
	ClassMeasurement byte = 0xC0
	ClassReply       byte = 0xC5

	CommandFrameLen  = 19
	PayloadLen       = 15
	ResponseFrameLen = 10
)

// 子命令码（payload[0]，应答 data[0]）
const (
	SubReportingMode byte = 2
	SubQueryData     byte = 4
	SubDeviceID      byte = 5
	SubSleepWork     byte = 6
	SubFirmware      byte = 7
	SubWorkingPeriod byte = 8
)

// 操作标志（payload[1]）
const (
	OpQuery byte = 0
	OpSet   byte = 1
)

// payload 偏移
const (
	offSub      = 0
	offOp       = 1
	offValue    = 2
	offNewIDHi  = 6
	offNewIDLo  = 7
	offTargetHi = 13
	offTargetLo = 14
)

// Payload 下行命令的 15 字节数据区
type Payload [PayloadLen]byte

// Frame 经过校验的 10 字节上行帧
type Frame struct {
	Class    byte
	Data     [6]byte
	Checksum byte
}

// ParseFrame 严格校验后解出一帧
func ParseFrame(raw []byte) (*Frame, error) {
	if err := VerifyResponse(raw); err != nil {
		return nil, err
	}
	f := &Frame{Class: raw[1], Checksum: raw[8]}
	copy(f.Data[:], raw[2:8])
	return f, nil
}

// Raw 还原线上字节
func (f *Frame) Raw() []byte {
	b := make([]byte, 0, ResponseFrameLen)
	b = append(b, Head, f.Class)
	b = append(b, f.Data[:]...)
	b = append(b, f.Checksum, Tail)
	return b
}

// DeviceID 设备地址位于 data[4..5]（帧偏移 6..7），低字节在前
func (f *Frame) DeviceID() coremodel.DeviceID {
	return coremodel.DeviceID(binary.LittleEndian.Uint16(f.Data[4:6]))
}

// SubCommand 应答帧回显的子命令
func (f *Frame) SubCommand() byte { return f.Data[0] }

func (f *Frame) String() string {
	return fmt.Sprintf("% X", f.Raw())
}
