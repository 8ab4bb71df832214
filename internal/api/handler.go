package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
	"github.com/taoyao-code/sds011-gateway/internal/protocol/sds011"
	"github.com/taoyao-code/sds011-gateway/internal/serialport"
	pgstorage "github.com/taoyao-code/sds011-gateway/internal/storage/pg"
)

// LatestReader 最新测量值来源（Redis 或进程内缓存）
type LatestReader interface {
	Latest(ctx context.Context, dev coremodel.DeviceID) (*coremodel.LatestReading, error)
}

// HistoryReader 测量历史（PostgreSQL）
type HistoryReader interface {
	Recent(ctx context.Context, dev *coremodel.DeviceID, limit int) ([]pgstorage.Measurement, error)
}

// LinkReporter 串口链路状态
type LinkReporter interface {
	Name() string
	Status() (coremodel.LinkStatus, error)
}

// Deps Handler 依赖；History/Link/ListPorts 可为空
type Deps struct {
	Adapter   *sds011.Adapter
	Commands  driverapi.CommandSource
	Latest    LatestReader
	History   HistoryReader
	Link      LinkReporter
	ListPorts func() ([]string, error)
}

// Handler 命令与查询接口
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.ListPorts == nil {
		deps.ListPorts = serialport.ListPorts
	}
	return &Handler{deps: deps, logger: logger}
}

// SendCommandRequest POST /commands 请求体
type SendCommandRequest struct {
	Command   string              `json:"command" binding:"required"`
	Parameter string              `json:"parameter"`
	DeviceID  *coremodel.DeviceID `json:"deviceId"`
}

// ListCommands GET /api/v1/commands
func (h *Handler) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": sds011.Catalog()})
}

// SendCommand POST /api/v1/commands
func (h *Handler) SendCommand(c *gin.Context) {
	var req SendCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := sds011.Lookup(req.Command); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command", "command": req.Command})
		return
	}

	cmd := &coremodel.CoreCommand{
		ID:        uuid.NewString(),
		Name:      req.Command,
		Parameter: req.Parameter,
		Target:    req.DeviceID,
		IssuedAt:  time.Now(),
	}
	if err := h.deps.Commands.SendCoreCommand(c.Request.Context(), cmd); err != nil {
		code := commandErrorStatus(err)
		h.logger.Warn("api: send command failed",
			zap.String("command", cmd.Name),
			zap.Int("status", code),
			zap.Error(err))
		c.JSON(code, gin.H{"error": err.Error(), "id": cmd.ID})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":       cmd.ID,
		"command":  cmd.Name,
		"issuedAt": cmd.IssuedAt,
	})
}

func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, sds011.ErrUnknownCommand), errors.Is(err, sds011.ErrInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, serialport.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, serialport.ErrWriteTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// GetSession GET /api/v1/session
func (h *Handler) GetSession(c *gin.Context) {
	a := h.deps.Adapter
	resp := gin.H{
		"deviceId": a.Session().DeviceID(),
		"buffered": a.Buffered(),
		"resync":   a.Policy().String(),
	}
	if h.deps.Link != nil {
		st, err := h.deps.Link.Status()
		link := gin.H{"port": h.deps.Link.Name(), "status": st.ToInfo()}
		if err != nil {
			link["lastError"] = err.Error()
		}
		resp["link"] = link
	}
	c.JSON(http.StatusOK, resp)
}

// ResetSession POST /api/v1/session/reset
// 清空接收缓冲；?target=true 时目标地址同时恢复为广播
func (h *Handler) ResetSession(c *gin.Context) {
	a := h.deps.Adapter
	dropped := a.Buffered()
	a.ResetBuffer()
	if c.Query("target") == "true" {
		a.Session().Reset()
	}
	h.logger.Info("api: session reset",
		zap.Int("dropped_bytes", dropped),
		zap.Stringer("device_id", a.Session().DeviceID()))
	c.JSON(http.StatusOK, gin.H{
		"dropped":  dropped,
		"deviceId": a.Session().DeviceID(),
	})
}

// LatestReading GET /api/v1/readings/latest?deviceId=0x0A34
// deviceId 省略时取会话当前目标
func (h *Handler) LatestReading(c *gin.Context) {
	dev := h.deps.Adapter.Session().DeviceID()
	if v := c.Query("deviceId"); v != "" {
		id, err := coremodel.ParseDeviceID(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		dev = id
	}
	if h.deps.Latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading", "deviceId": dev})
		return
	}
	r, err := h.deps.Latest.Latest(c.Request.Context(), dev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading", "deviceId": dev})
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListReadings GET /api/v1/readings?deviceId=&limit=
func (h *Handler) ListReadings(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "measurement history disabled"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, 1000)
	}
	var dev *coremodel.DeviceID
	if v := c.Query("deviceId"); v != "" {
		id, err := coremodel.ParseDeviceID(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		dev = &id
	}
	list, err := h.deps.History.Recent(c.Request.Context(), dev, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"readings": list})
}

// ListSerialPorts GET /api/v1/serial/ports
func (h *Handler) ListSerialPorts(c *gin.Context) {
	ports, err := h.deps.ListPorts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ports": ports})
}
