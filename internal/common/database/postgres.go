// Package database 管理 PostgreSQL 连接与迁移
package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/funzone-backend/internal/common/config"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/models"
)

const pingTimeout = 5 * time.Second

// Init 连接数据库，配置连接池，按需自动迁移
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   NewLogger(logger.Named("gorm"), cfg.SlowThreshold, cfg.LogMode),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return db, nil
}

// Migrate 迁移全部模型，测试库与正式库共用
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// Close 关闭连接池，db 为 nil 时什么也不做
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Logger 把 GORM 日志写成结构化的 zap 日志
// 慢查询记 warn，出错记 error，ErrRecordNotFound 不算错误；verbose 时记录全部 SQL
type Logger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewLogger slowThreshold 为 0 时不记慢查询
func NewLogger(log *zap.Logger, slowThreshold time.Duration, verbose bool) *Logger {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return &Logger{log: log, level: level, slowThreshold: slowThreshold}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *Logger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, args...)
	}
}

func (l *Logger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, args...)
	}
}

func (l *Logger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, args...)
	}
}

// Trace 每条 SQL 执行完后调用
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !stderrors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("sql error", zap.Error(err), zap.String("sql", sql), zap.Int64("rows", rows), logger.Elapsed(elapsed))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow sql", zap.String("sql", sql), zap.Int64("rows", rows), logger.Elapsed(elapsed),
			zap.Duration("threshold", l.slowThreshold))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("sql", zap.String("sql", sql), zap.Int64("rows", rows), logger.Elapsed(elapsed))
	}
}
