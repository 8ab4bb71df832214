package sds011

import "errors"

var (
	// ErrShortFrame 帧长度不足
	ErrShortFrame = errors.New("short frame")
	// ErrBadHead 帧头不是 0xAA
	ErrBadHead = errors.New("bad head marker")
	// ErrBadTail 帧尾不是 0xAB
	ErrBadTail = errors.New("bad tail marker")
	// ErrChecksumMismatch checksum校验失败
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// CalculateChecksum 计算累加校验和
// 对所有字节累加，byte 溢出自动丢弃高位（并非 CRC）
func CalculateChecksum(data []byte) byte {
	var checksum byte
	for _, b := range data {
		checksum += b
	}
	return checksum
}

// VerifyResponse 校验一帧 10 字节应答
// 校验范围：data[2..7]，校验和位于 data[8]，帧尾位于 data[9]
func VerifyResponse(raw []byte) error {
	if len(raw) < ResponseFrameLen {
		return ErrShortFrame
	}
	if raw[0] != Head {
		return ErrBadHead
	}
	if CalculateChecksum(raw[2:8]) != raw[8] {
		return ErrChecksumMismatch
	}
	if raw[9] != Tail {
		return ErrBadTail
	}
	return nil
}

// VerifyCommand 校验一帧 19 字节下行命令（用于回环与测试工具）
func VerifyCommand(raw []byte) error {
	if len(raw) < CommandFrameLen {
		return ErrShortFrame
	}
	if raw[0] != Head {
		return ErrBadHead
	}
	if CalculateChecksum(raw[2:2+PayloadLen]) != raw[17] {
		return ErrChecksumMismatch
	}
	if raw[18] != Tail {
		return ErrBadTail
	}
	return nil
}
