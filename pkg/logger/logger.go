package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例
var Log *zap.Logger

// Init 初始化 zap 日志
// debug 模式下输出彩色控制台格式，生产环境输出 JSON
func Init(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var err error
	Log, err = cfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
}

// Sync 刷新缓冲日志，程序退出前调用
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func init() {
	// 保证 Log 在 Init 之前也可用（如单元测试）
	if os.Getenv("APP_ENV") == "" {
		Log = zap.NewNop()
	} else {
		Log, _ = zap.NewProduction()
	}
}
