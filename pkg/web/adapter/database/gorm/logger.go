package gorm

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	config "github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// NewGormLogger creates a gorm logger whose verbosity follows the application log level.
// SQL statements are only traced at DEBUG; otherwise only slow queries and errors are logged.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelTrace, config.LogLevelDebug:
		gormLevel = gormlogger.Info
	case config.LogLevelInfo, config.LogLevelWarn:
		gormLevel = gormlogger.Warn
	case config.LogLevelError, config.LogLevelFatal:
		gormLevel = gormlogger.Error
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(
		NewGormWriter(),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm log output to the framework logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gormlogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

// isStatement reports whether msg is a traced SQL statement ("[1.2ms] [rows:1] SELECT ...").
func isStatement(msg string) bool {
	if !strings.Contains(msg, "[rows:") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(msg, verb) {
			return !strings.Contains(msg, "SLOW SQL")
		}
	}
	return false
}
