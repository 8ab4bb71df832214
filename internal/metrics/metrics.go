package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	SerialBytesReceived prometheus.Counter
	SerialBytesSent     prometheus.Counter
	SerialConnected     prometheus.Gauge
	SerialReconnects    prometheus.Counter
	FramesTotal         *prometheus.CounterVec // labels: class
	DiscardedBytes      *prometheus.CounterVec // labels: reason
	EventsTotal         *prometheus.CounterVec // labels: type
	CommandsTotal       *prometheus.CounterVec // labels: command, result=ok|error
	CommandsThrottled   prometheus.Counter
	PM25                *prometheus.GaugeVec // labels: device
	PM10                *prometheus.GaugeVec // labels: device
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		SerialBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sds011_serial_bytes_received_total",
			Help: "Total bytes read from the serial port.",
		}),
		SerialBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sds011_serial_bytes_sent_total",
			Help: "Total bytes written to the serial port.",
		}),
		SerialConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sds011_serial_connected",
			Help: "1 when the serial port is open.",
		}),
		SerialReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sds011_serial_reconnects_total",
			Help: "Serial port reopen attempts after an error.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sds011_frames_total",
			Help: "Validated response frames by command class.",
		}, []string{"class"}),
		DiscardedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sds011_discarded_bytes_total",
			Help: "Bytes dropped by the stream decoder by reason.",
		}, []string{"reason"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sds011_events_total",
			Help: "Core events emitted by type.",
		}, []string{"type"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sds011_commands_total",
			Help: "Commands dispatched by name and result.",
		}, []string{"command", "result"}),
		CommandsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sds011_commands_throttled_total",
			Help: "Outbound frames delayed by the rate limiter.",
		}),
		PM25: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sds011_pm25_ugm3",
			Help: "Latest PM2.5 reading in ug/m3.",
		}, []string{"device"}),
		PM10: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sds011_pm10_ugm3",
			Help: "Latest PM10 reading in ug/m3.",
		}, []string{"device"}),
	}
	reg.MustRegister(
		m.SerialBytesReceived, m.SerialBytesSent, m.SerialConnected, m.SerialReconnects,
		m.FramesTotal, m.DiscardedBytes, m.EventsTotal,
		m.CommandsTotal, m.CommandsThrottled,
		m.PM25, m.PM10,
	)
	return m
}

// FrameDecoded implements sds011.Observer.
func (m *AppMetrics) FrameDecoded(class byte) {
	m.FramesTotal.WithLabelValues(fmt.Sprintf("0x%02X", class)).Inc()
}

// BytesDiscarded implements sds011.Observer.
func (m *AppMetrics) BytesDiscarded(reason string, n int) {
	m.DiscardedBytes.WithLabelValues(reason).Add(float64(n))
}

// EventEmitted implements sds011.Observer.
func (m *AppMetrics) EventEmitted(ev *coremodel.CoreEvent) {
	m.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
	if ev.Measurement != nil {
		dev := ev.DeviceID.String()
		m.PM25.WithLabelValues(dev).Set(ev.Measurement.PM25)
		m.PM10.WithLabelValues(dev).Set(ev.Measurement.PM10)
	}
}

// LinkChanged 串口状态变化
func (m *AppMetrics) LinkChanged(s coremodel.LinkStatus) {
	if s == coremodel.LinkConnected {
		m.SerialConnected.Set(1)
		return
	}
	m.SerialConnected.Set(0)
	if s == coremodel.LinkError {
		m.SerialReconnects.Inc()
	}
}

// CommandResult 记录一次命令下发结果
func (m *AppMetrics) CommandResult(name string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CommandsTotal.WithLabelValues(name, result).Inc()
}
