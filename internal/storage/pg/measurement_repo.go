package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

// schema 测量历史表；编解码状态不落库
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sds011_measurements (
		id          BIGSERIAL PRIMARY KEY,
		event_id    TEXT NOT NULL UNIQUE,
		device_id   INTEGER NOT NULL,
		pm25        DOUBLE PRECISION NOT NULL,
		pm10        DOUBLE PRECISION NOT NULL,
		measured_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sds011_measurements_device_time
		ON sds011_measurements (device_id, measured_at DESC)`,
}

// Measurement 一条历史测量
type Measurement struct {
	EventID    string             `json:"eventId"`
	DeviceID   coremodel.DeviceID `json:"deviceId"`
	PM25       float64            `json:"pm25"`
	PM10       float64            `json:"pm10"`
	MeasuredAt time.Time          `json:"measuredAt"`
}

// MeasurementRepo 测量历史仓储，同时作为事件下游
type MeasurementRepo struct {
	Pool *pgxpool.Pool
}

var _ driverapi.EventSink = (*MeasurementRepo)(nil)

// EnsureSchema 建表（幂等）
func (r *MeasurementRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// HandleCoreEvent 只持久化测量事件；同一事件重复投递时忽略
func (r *MeasurementRepo) HandleCoreEvent(ctx context.Context, ev *coremodel.CoreEvent) error {
	if ev == nil || ev.Measurement == nil {
		return nil
	}
	return r.Insert(ctx, Measurement{
		EventID:    ev.ID,
		DeviceID:   ev.DeviceID,
		PM25:       ev.Measurement.PM25,
		PM10:       ev.Measurement.PM10,
		MeasuredAt: ev.OccurredAt,
	})
}

// Insert 写入一条测量
func (r *MeasurementRepo) Insert(ctx context.Context, m Measurement) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO sds011_measurements (event_id, device_id, pm25, pm10, measured_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id) DO NOTHING`,
		m.EventID, int32(m.DeviceID), m.PM25, m.PM10, m.MeasuredAt)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// Latest 设备最新一条测量；无记录时返回 nil
func (r *MeasurementRepo) Latest(ctx context.Context, dev coremodel.DeviceID) (*Measurement, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT event_id, device_id, pm25, pm10, measured_at
		   FROM sds011_measurements
		  WHERE device_id = $1
		  ORDER BY measured_at DESC
		  LIMIT 1`, int32(dev))
	m, err := scanMeasurement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest measurement: %w", err)
	}
	return m, nil
}

// Recent 最近的测量，dev 为 nil 时不按设备过滤
func (r *MeasurementRepo) Recent(ctx context.Context, dev *coremodel.DeviceID, limit int) ([]Measurement, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var (
		rows pgx.Rows
		err  error
	)
	if dev != nil {
		rows, err = r.Pool.Query(ctx,
			`SELECT event_id, device_id, pm25, pm10, measured_at
			   FROM sds011_measurements
			  WHERE device_id = $1
			  ORDER BY measured_at DESC
			  LIMIT $2`, int32(*dev), limit)
	} else {
		rows, err = r.Pool.Query(ctx,
			`SELECT event_id, device_id, pm25, pm10, measured_at
			   FROM sds011_measurements
			  ORDER BY measured_at DESC
			  LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent measurements: %w", err)
	}
	defer rows.Close()

	out := make([]Measurement, 0, limit)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var (
		m   Measurement
		dev int32
	)
	if err := row.Scan(&m.EventID, &dev, &m.PM25, &m.PM10, &m.MeasuredAt); err != nil {
		return nil, err
	}
	m.DeviceID = coremodel.DeviceID(dev)
	return &m, nil
}
