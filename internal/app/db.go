package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	pgstorage "github.com/taoyao-code/sds011-gateway/internal/storage/pg"
)

// ConnectDB 建立连接池并按需建表；未启用时返回 nil, nil, nil
func ConnectDB(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, *pgstorage.MeasurementRepo, error) {
	if !cfg.Enabled {
		log.Info("database is disabled, measurement history off")
		return nil, nil, nil
	}
	dbpool, err := pgstorage.NewPool(ctx, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, nil, err
	}
	repo := &pgstorage.MeasurementRepo{Pool: dbpool}
	if cfg.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Error("db schema error", zap.Error(err))
			dbpool.Close()
			return nil, nil, err
		}
		log.Info("db schema ensured")
	}
	return dbpool, repo, nil
}
