package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger slog 實作
type SlogLogger struct {
	logger    *slog.Logger
	level     *slog.LevelVar
	sanitizer *Sanitizer
	writers   []io.WriteCloser // 需要關閉的 writers
}

// NewSlogLogger 建立新的 slog logger
func NewSlogLogger(config Config) (*SlogLogger, error) {
	sanitizer := NewSanitizer()

	var writers []io.Writer
	var closeableWriters []io.WriteCloser

	addWriter := func(w io.Writer) {
		writers = append(writers, w)
		// 自訂 writer 需要關閉，標準輸出除外
		if wc, ok := w.(io.WriteCloser); ok && wc != os.Stdout && wc != os.Stderr {
			closeableWriters = append(closeableWriters, wc)
		}
	}

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStderr:
			if output.Writer != nil {
				addWriter(output.Writer)
			} else {
				writers = append(writers, os.Stderr)
			}
		case OutputStdout:
			if output.Writer != nil {
				addWriter(output.Writer)
			} else {
				writers = append(writers, os.Stdout)
			}
		case OutputFile:
			if config.File.Enabled {
				fileWriter, err := createFileWriter(config.File)
				if err != nil {
					return nil, fmt.Errorf("failed to create file writer: %w", err)
				}
				writers = append(writers, fileWriter)
				closeableWriters = append(closeableWriters, fileWriter)
			}
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	level := new(slog.LevelVar)
	level.Set(convertLevel(config.Level))

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	case FormatText:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    config.NoColor || !isTerminal(writers),
		})
	}

	return &SlogLogger{
		logger:    slog.New(handler),
		level:     level,
		sanitizer: sanitizer,
		writers:   closeableWriters,
	}, nil
}

// isTerminal reports whether output goes to a single terminal.
// Colors would end up as escape codes in files and pipes otherwise.
func isTerminal(writers []io.Writer) bool {
	if len(writers) != 1 {
		return false
	}
	f, ok := writers[0].(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// createFileWriter 建立檔案 writer（使用 lumberjack 支援 rotation）
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func convertLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level; children follow
func (l *SlogLogger) SetLevel(level Level) {
	l.level.Set(convertLevel(level))
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

// With 建立帶 context 的子 logger
// 子 logger 不擁有 writers，避免重複關閉
func (l *SlogLogger) With(args ...any) Logger {
	return &childLogger{
		logger:    l.logger.With(l.sanitizer.SanitizeArgs(args)...),
		sanitizer: l.sanitizer,
	}
}

// Sync slog 本身沒有 Sync，lumberjack 會直接寫入
func (l *SlogLogger) Sync() error {
	return nil
}

// Shutdown 優雅關閉，flush 並關閉所有 writers
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

type childLogger struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
}

func (c *childLogger) Debug(msg string, args ...any) {
	c.logger.Debug(c.sanitizer.Sanitize(msg), c.sanitizer.SanitizeArgs(args)...)
}

func (c *childLogger) Info(msg string, args ...any) {
	c.logger.Info(c.sanitizer.Sanitize(msg), c.sanitizer.SanitizeArgs(args)...)
}

func (c *childLogger) Warn(msg string, args ...any) {
	c.logger.Warn(c.sanitizer.Sanitize(msg), c.sanitizer.SanitizeArgs(args)...)
}

func (c *childLogger) Error(msg string, args ...any) {
	c.logger.Error(c.sanitizer.Sanitize(msg), c.sanitizer.SanitizeArgs(args)...)
}

func (c *childLogger) With(args ...any) Logger {
	return &childLogger{
		logger:    c.logger.With(c.sanitizer.SanitizeArgs(args)...),
		sanitizer: c.sanitizer,
	}
}

func (c *childLogger) Sync() error {
	return nil
}

func (c *childLogger) Shutdown() error {
	return nil
}
