package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger forwards GORM's query log to zap.
type GormLogger struct {
	log   *zap.Logger
	level logger.LogLevel
}

func NewGormLogger(l *zap.Logger, level logger.LogLevel) *GormLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &GormLogger{
		log:   l.With(zap.String("component", "gorm")).WithOptions(zap.AddCallerSkip(3)),
		level: level,
	}
}

func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		g.log.Error("query failed", append(fields, zap.Error(err))...)
	case elapsed > slowQueryThreshold && g.level >= logger.Warn:
		g.log.Warn("slow query", fields...)
	case g.level >= logger.Info:
		g.log.Debug("query", fields...)
	}
}
