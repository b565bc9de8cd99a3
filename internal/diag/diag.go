// Package diag turns graphics failures into structured log lines.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llehouerou/termgfx/internal/config"
	"github.com/llehouerou/termgfx/internal/errmsg"
	"github.com/llehouerou/termgfx/internal/graphics"
)

// Reporter logs every reported failure. It implements graphics.Reporter.
type Reporter struct {
	log *zap.Logger
}

var _ graphics.Reporter = (*Reporter)(nil)

// New returns a Reporter writing to log.
func New(log *zap.Logger) *Reporter {
	return &Reporter{log: log}
}

// Nop returns a Reporter that discards everything.
func Nop() *Reporter {
	return New(zap.NewNop())
}

// Report logs err at warn level, or error level for resource exhaustion.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}

	var gerr *graphics.Error
	if !errors.As(err, &gerr) {
		r.log.Warn(errmsg.Format(errmsg.OpDispatch, err))
		return
	}

	fields := []zap.Field{
		zap.String("kind", gerr.Kind.String()),
		zap.String("op", string(gerr.Op)),
	}
	if gerr.Context != "" {
		fields = append(fields, zap.String("path", gerr.Context))
	}
	if gerr.Kind == graphics.KindResource {
		r.log.Error(gerr.Error(), fields...)
		return
	}
	r.log.Warn(gerr.Error(), fields...)
}

// NewLogger builds a logger from cfg, writing to stderr unless cfg names a
// file. The returned close function releases the log file, if any.
func NewLogger(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	w := stderr
	closeFn := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	return newLoggerWithWriter(cfg.Format, level, w), closeFn, nil
}

func newLoggerWithWriter(format string, level zapcore.Level, w io.Writer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core)
}
