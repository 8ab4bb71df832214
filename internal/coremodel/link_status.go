package coremodel

// LinkStatus 串口连接状态（对应原节点编辑器中的绿/红状态点）
type LinkStatus int

const (
	LinkDisconnected LinkStatus = 0 // 未连接 / 已关闭
	LinkConnecting   LinkStatus = 1 // 正在打开
	LinkConnected    LinkStatus = 2 // 已连接，可收发
	LinkError        LinkStatus = 3 // 打开或读写失败，等待重连
)

// LinkStatusInfo 状态完整信息（用于 API 响应）
type LinkStatusInfo struct {
	Code         int    `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayColor string `json:"display_color"`
}

// CanSend 只有已连接才允许下发命令
func (s LinkStatus) CanSend() bool {
	return s == LinkConnected
}

// ToInfo 获取状态的完整信息
func (s LinkStatus) ToInfo() LinkStatusInfo {
	switch s {
	case LinkDisconnected:
		return LinkStatusInfo{Code: 0, Name: "disconnected", Description: "serial port closed", DisplayColor: "grey"}
	case LinkConnecting:
		return LinkStatusInfo{Code: 1, Name: "connecting", Description: "opening serial port", DisplayColor: "yellow"}
	case LinkConnected:
		return LinkStatusInfo{Code: 2, Name: "connected", Description: "serial port open", DisplayColor: "green"}
	case LinkError:
		return LinkStatusInfo{Code: 3, Name: "error", Description: "serial port failed, retrying", DisplayColor: "red"}
	default:
		return LinkStatusInfo{Code: int(s), Name: "unknown", Description: "unknown link status", DisplayColor: "grey"}
	}
}

// String 返回状态名称
func (s LinkStatus) String() string {
	return s.ToInfo().Name
}
