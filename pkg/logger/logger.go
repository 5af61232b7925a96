package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时只输出到标准输出
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

const (
	defaultFileName   = "indexer.log"
	defaultMaxSizeMB  = 200
	defaultMaxBackups = 20
	defaultMaxAgeDays = 7
)

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	sugar.Store(zap.NewNop().Sugar())
}

// Init 按配置初始化全局 logger，可重复调用（后一次覆盖前一次）
func Init(opt LogOption) error {
	level, err := zapcore.ParseLevel(strings.ToLower(opt.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", opt.LogDir, err)
		}
		// lumberjack 负责按大小轮转
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, defaultFileName),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar.Store(l.Sugar())
	return nil
}

// Replace 替换全局 logger，返回恢复函数
func Replace(l *zap.Logger) func() {
	prev := sugar.Swap(l.Sugar())
	return func() { sugar.Store(prev) }
}

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	_ = sugar.Load().Sync()
}

func Debugf(format string, args ...any) { sugar.Load().Debugf(format, args...) }
func Infof(format string, args ...any)  { sugar.Load().Infof(format, args...) }
func Warnf(format string, args ...any)  { sugar.Load().Warnf(format, args...) }
func Errorf(format string, args ...any) { sugar.Load().Errorf(format, args...) }

// With 返回带固定字段的 logger，用于模块内打点
func With(kv ...any) *zap.SugaredLogger {
	return sugar.Load().With(kv...)
}
