package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/logging"
)

func main() {
	// 1) 加载配置（SDS011_CONFIG 或 configs/example.yaml）
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动网关，阻塞至收到退出信号
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Error("gateway exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
