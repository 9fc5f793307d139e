// Package gin provides a zerolog access log middleware for gin.
package gin

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"kestrel/backend/internal/logger"
)

// Config implements the access log middleware settings.
type Config struct {
	// Skip defines a function to skip this middleware when returned true.
	Skip func(c *gin.Context) bool

	// Config of the logger.
	Config logger.Log

	// Output overrides the configured writers. Used by tests.
	Output io.Writer
}

// New creates a gin access logging middleware using zerolog.
func New(cfg Config) gin.HandlerFunc {
	out := cfg.Output
	if out == nil {
		out = writers(cfg.Config)
	}

	accessLogger := zerolog.New(out).With().Timestamp().Logger().Level(zerolog.NoLevel)

	return func(c *gin.Context) {
		if cfg.Skip != nil && cfg.Skip(c) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		p := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			p = p + "?" + raw
		}

		event := accessLogger.Log().
			Str("IP", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", elapsed).
			Str("URI", p).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("User-Agent", c.Request.UserAgent())

		if len(c.Errors) > 0 {
			event.Str("errors", c.Errors.String())
		}

		event.Send()
	}
}

func writers(cfg logger.Log) io.Writer {
	var ws []io.Writer

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.File.Path, 0o750); err != nil {
			log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")
		} else {
			ws = append(ws, &lumberjack.Logger{
				Filename:   path.Join(cfg.File.Path, cfg.File.AccessLog),
				MaxSize:    cfg.File.MaxSize,
				MaxAge:     cfg.File.MaxAge,
				MaxBackups: cfg.File.MaxBackups,
			})
		}
	}

	if cfg.Console.Enabled && cfg.EnableAccessLogToConsole {
		if cfg.Console.UseConsoleWriter {
			ws = append(ws, zerolog.ConsoleWriter{
				Out:          os.Stdout,
				TimeFormat:   zerolog.TimeFieldFormat,
				PartsExclude: []string{"level"},
			})
		} else {
			ws = append(ws, os.Stdout)
		}
	}

	return zerolog.MultiLevelWriter(ws...)
}
