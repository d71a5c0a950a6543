package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Config{Level: level, Format: format, Output: NewOutput(buf)}), buf
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatText)

	logger.Info("hidden")
	logger.Warn("shown", "step", "cmake")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "step=cmake") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestLoggerJSON(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)

	logger.With("run", "42").Info("step finished", "result", "SUCCESS")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["run"] != "42" || entry["result"] != "SUCCESS" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestWithErrorCoded(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)

	err := errors.Wrap(errors.ErrCodeReviewNetwork, "send message", fmt.Errorf("connection reset"))
	logger.WithError(fmt.Errorf("update: %w", err)).Warn("status update failed")

	var entry map[string]any
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatalf("invalid JSON log line: %v", jerr)
	}
	if entry["error_code"] != "REVIEW-003" {
		t.Errorf("expected error_code REVIEW-003, got %v", entry["error_code"])
	}
	if entry["cause"] != "connection reset" {
		t.Errorf("expected cause, got %v", entry["cause"])
	}
}

func TestWithErrorPlainAndNil(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatText)

	if logger.WithError(nil) != logger {
		t.Errorf("WithError(nil) should return the same logger")
	}

	logger.LogError(context.Background(), "upload failed", fmt.Errorf("boom"))
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("expected plain error attribute, got %s", buf.String())
	}
}

func TestDefaultLogger(t *testing.T) {
	original := process.Load()
	defer process.Store(original)

	SetDefaultLogger(nil)
	fallback := DefaultLogger()
	if fallback == nil {
		t.Fatal("DefaultLogger should lazily create a logger")
	}
	if DefaultLogger() != fallback {
		t.Error("DefaultLogger should keep the fallback it created")
	}

	custom := Discard()
	SetDefaultLogger(custom)
	if DefaultLogger() != custom {
		t.Errorf("DefaultLogger did not return the configured logger")
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Errorf("expected json")
	}
	if ParseFormat("console") != FormatText {
		t.Errorf("unknown formats should fall back to text")
	}
	if FormatJSON.String() != "json" || FormatText.String() != "text" {
		t.Errorf("unexpected format names")
	}
}
