package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
)

const latestKeyPrefix = "sds011:latest:"

// store 发布器用到的 Redis 命令子集（*redis.Client 满足）
type store interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// EventPublisher 将核心事件以 JSON 发布到频道，并按设备缓存最新测量值
type EventPublisher struct {
	rdb       store
	channel   string
	latestTTL time.Duration
}

var _ driverapi.EventSink = (*EventPublisher)(nil)

// NewEventPublisher 创建事件发布器
func NewEventPublisher(c *Client, channel string, latestTTL time.Duration) *EventPublisher {
	return newEventPublisher(c.Client, channel, latestTTL)
}

func newEventPublisher(rdb store, channel string, latestTTL time.Duration) *EventPublisher {
	if channel == "" {
		channel = "sds011:events"
	}
	return &EventPublisher{rdb: rdb, channel: channel, latestTTL: latestTTL}
}

// HandleCoreEvent implements driverapi.EventSink.
func (p *EventPublisher) HandleCoreEvent(ctx context.Context, ev *coremodel.CoreEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	if ev.Measurement == nil {
		return nil
	}

	key := latestKeyPrefix + ev.DeviceID.String()
	if err := p.rdb.HSet(ctx, key,
		"pm25", ev.Measurement.PM25,
		"pm10", ev.Measurement.PM10,
		"at", ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return fmt.Errorf("cache latest: %w", err)
	}
	if p.latestTTL > 0 {
		if err := p.rdb.Expire(ctx, key, p.latestTTL).Err(); err != nil {
			return fmt.Errorf("expire latest: %w", err)
		}
	}
	return nil
}

// Latest 读取设备最新测量值；不存在时返回 nil
func (p *EventPublisher) Latest(ctx context.Context, dev coremodel.DeviceID) (*coremodel.LatestReading, error) {
	m, err := p.rdb.HGetAll(ctx, latestKeyPrefix+dev.String()).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	r := &coremodel.LatestReading{DeviceID: dev}
	if r.PM25, err = strconv.ParseFloat(m["pm25"], 64); err != nil {
		return nil, fmt.Errorf("parse pm25: %w", err)
	}
	if r.PM10, err = strconv.ParseFloat(m["pm10"], 64); err != nil {
		return nil, fmt.Errorf("parse pm10: %w", err)
	}
	if r.At, err = time.Parse(time.RFC3339Nano, m["at"]); err != nil {
		return nil, fmt.Errorf("parse at: %w", err)
	}
	return r, nil
}
