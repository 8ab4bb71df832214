package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/sds011-gateway/internal/health"
)

// NewHealthAggregator 串口链路与启动就绪为必选项，数据库按需加入
func NewHealthAggregator(link health.LinkReporter, ready *health.Readiness, dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator(
		health.NewSerialChecker(link),
		ready.Checker(),
	)
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}
