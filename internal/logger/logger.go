package logger

import (
	"fmt"
	"sync"
)

var (
	defaultLogger Logger
	mu            sync.RWMutex
	initialized   bool
)

// Init 初始化全域 logger
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	// 避免重複初始化
	if initialized {
		return fmt.Errorf("logger already initialized; call Shutdown() before re-initializing")
	}

	logger, err := NewSlogLogger(config)
	if err != nil {
		return fmt.Errorf("failed to create slog logger: %w", err)
	}

	defaultLogger = logger
	initialized = true
	return nil
}

// Get 取得全域 logger，未初始化時回傳 NullLogger
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !initialized {
		return &NullLogger{}
	}

	return defaultLogger
}

// With 建立帶 context 的子 logger
func With(args ...any) Logger {
	return Get().With(args...)
}

// Sync 強制 flush
func Sync() error {
	return Get().Sync()
}

// Shutdown 優雅關閉，並回到未初始化狀態
func Shutdown() error {
	mu.Lock()
	if !initialized {
		mu.Unlock()
		return nil
	}

	logger := defaultLogger
	initialized = false
	mu.Unlock() // 呼叫 Shutdown() 前先釋放鎖，避免死結

	return logger.Shutdown()
}

// SetLevel 動態調整日誌級別
func SetLevel(level Level) {
	mu.RLock()
	defer mu.RUnlock()

	if l, ok := defaultLogger.(*SlogLogger); ok && initialized {
		l.SetLevel(level)
	}
}

// NullLogger 空 logger（不做任何事）
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
