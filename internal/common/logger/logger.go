// Package logger 提供结构化日志功能
// 全局日志器在 Init 之前退化为 zap 开发日志器，测试可用 SetLogger 注入 observer
package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/funzone-backend/internal/common/config"
)

var (
	mu    sync.RWMutex
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init 按配置构建全局日志器
// output: stdout | file | both，file 与 both 需要 file_path
func Init(cfg *config.LoggerConfig) error {
	level.SetLevel(getLogLevel(cfg.Level))

	core := zapcore.NewCore(newEncoder(cfg.Format), newWriteSyncer(cfg), level)
	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	SetLogger(zap.New(core, options...))
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func newWriteSyncer(cfg *config.LoggerConfig) zapcore.WriteSyncer {
	toFile := cfg.FilePath != "" && (cfg.Output == "file" || cfg.Output == "both")
	toStdout := !toFile || cfg.Output == "both"

	var ws []zapcore.WriteSyncer
	if toStdout {
		ws = append(ws, zapcore.AddSync(os.Stdout))
	}
	if toFile {
		ws = append(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
	}
	return zapcore.NewMultiWriteSyncer(ws...)
}

// SetLogger 替换全局日志器
func SetLogger(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// SetLevel 运行时调整日志级别，仅对 Init 构建的日志器生效
func SetLevel(l string) {
	level.SetLevel(getLogLevel(l))
}

// getLogLevel 未识别的级别按 info 处理
func getLogLevel(l string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(l)))
	if err != nil || parsed > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return parsed
}

// GetLogger 获取全局日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	dev, _ := zap.NewDevelopment()
	SetLogger(dev)
	return dev
}

// Sync 刷出缓冲，进程退出前调用
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if log == nil {
		return nil
	}
	return log.Sync()
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// Named 子模块日志器，如 scheduler、mqtt
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// 常用字段

func RequestID(id string) zap.Field     { return zap.String("request_id", id) }
func UserID(id int64) zap.Field         { return zap.Int64("user_id", id) }
func TicketID(id int64) zap.Field       { return zap.Int64("ticket_id", id) }
func PromotionID(id int64) zap.Field    { return zap.Int64("promotion_id", id) }
func ChallengeID(id int64) zap.Field    { return zap.Int64("challenge_id", id) }
func PaymentNo(no string) zap.Field     { return zap.String("payment_no", no) }
func Module(name string) zap.Field      { return zap.String("module", name) }
func Action(name string) zap.Field      { return zap.String("action", name) }
func Elapsed(d time.Duration) zap.Field { return zap.Duration("elapsed", d) }
