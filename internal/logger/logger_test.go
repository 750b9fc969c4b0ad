package logger

import (
	"bytes"
	"strings"
	"testing"
)

func initBuffer(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	err := Init(Config{
		Level:   level,
		Format:  FormatText,
		Outputs: []OutputConfig{{Type: OutputStderr, Writer: buf}},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = Shutdown() })
	return buf
}

func TestLogger_InitAndGet(t *testing.T) {
	buf := initBuffer(t, LevelInfo)

	Get().Info("run planned", "included", 449)

	output := buf.String()
	if !strings.Contains(output, "run planned") || !strings.Contains(output, "included=449") {
		t.Errorf("unexpected log output: %s", output)
	}
}

func TestLogger_InitTwice(t *testing.T) {
	initBuffer(t, LevelInfo)

	if err := Init(Config{}); err == nil {
		t.Error("expected error on second Init")
	}
}

func TestLogger_NullLoggerBeforeInit(t *testing.T) {
	_ = Shutdown()

	logger := Get()
	if _, ok := logger.(*NullLogger); !ok {
		t.Fatalf("expected NullLogger, got %T", logger)
	}
	// 不應該 panic
	logger.Info("ignored")
	logger.With("k", "v").Error("ignored")
	SetLevel(LevelDebug)
}

func TestLogger_With(t *testing.T) {
	buf := initBuffer(t, LevelInfo)

	With("remote", "gdrive").Info("listing")

	if !strings.Contains(buf.String(), "remote=gdrive") {
		t.Errorf("output missing context: %s", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	buf := initBuffer(t, LevelInfo)

	Get().Debug("hidden")
	SetLevel(LevelDebug)
	Get().Debug("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("debug message logged at info level: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("debug message missing after SetLevel: %s", output)
	}
}

func TestLogger_Shutdown(t *testing.T) {
	initBuffer(t, LevelInfo)

	if err := Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	if err := Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// 再次呼叫應該不會 panic
	if err := Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if ParseLevel("WARNING") != LevelWarn {
		t.Error("expected warn")
	}
	if ParseLevel("bogus") != LevelInfo {
		t.Error("expected info fallback")
	}
	if ParseFormat("JSON") != FormatJSON {
		t.Error("expected json")
	}
	if ParseFormat("") != FormatPretty {
		t.Error("expected pretty fallback")
	}
	if FormatPretty.String() != "pretty" || LevelError.String() != "error" {
		t.Error("unexpected String()")
	}
}
