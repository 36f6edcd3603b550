// Package logx 构造 CLI 使用的 zerolog.Logger。
//
// stdout 只输出 JSON 结果；日志一律写 stderr（以及可选的滚动日志文件）。
package logx

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level zerolog.Level
	// File 非空时额外写入滚动日志（JSON 行）。
	File string
	// Console 为 nil 时使用 os.Stderr；测试可注入 buffer。
	Console io.Writer
	// NoColor 关闭控制台颜色（非 TTY 时由调用方设置）。
	NoColor bool
}

// New 返回 logger 以及需要在退出前调用的 close。
func New(o Options) (zerolog.Logger, func() error, error) {
	console := o.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    o.NoColor,
		TimeFormat: time.TimeOnly,
	}}

	closeFn := func() error { return nil }
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
			return zerolog.Nop(), closeFn, err
		}
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		writers = append(writers, lj)
		closeFn = lj.Close
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(o.Level).
		With().Timestamp().Logger()
	return l, closeFn, nil
}

// WithRequest 给一次命令调用附加唯一 req id，便于在日志文件中串起同一次运行。
func WithRequest(l zerolog.Logger, command string) zerolog.Logger {
	return l.With().Str("req", uuid.NewString()).Str("cmd", command).Logger()
}
