package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/platinummonkey/backer/pkg/contextkeys"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Infof("resolved %s", "acme")
		entry := decodeEntry(t, &buf)
		if entry["level"] != "INFO" {
			t.Errorf("Expected level INFO, got %v", entry["level"])
		}
		if entry["msg"] != "resolved acme" {
			t.Errorf("Expected message 'resolved acme', got %v", entry["msg"])
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"verbose": InfoLevel,
		"":        InfoLevel,
	}
	for input, expected := range tests {
		if got := ParseLogLevel(input); got != expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", input, got, expected)
		}
	}
}

func TestLogger_WithFieldAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("organization", "acme").WithError(errors.New("boom")).Warn("lookup failed")

	entry := decodeEntry(t, &buf)
	if entry["organization"] != "acme" {
		t.Errorf("Expected field organization=acme, got %v", entry["organization"])
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected field error=boom, got %v", entry["error"])
	}
}

func TestLogger_WithNilErrorReturnsSameLogger(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	if logger.WithError(nil) != logger {
		t.Error("WithError(nil) should return the receiver")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-123")
	ctx = contextkeys.WithUserID(ctx, "user-456")

	FromContext(ctx).Info("handled")

	entry := decodeEntry(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("Expected request_id req-123, got %v", entry["request_id"])
	}
	if entry["user_id"] != "user-456" {
		t.Errorf("Expected user_id user-456, got %v", entry["user_id"])
	}
}

func TestGetLogger_Default(t *testing.T) {
	if GetLogger(context.Background()) != defaultLogger {
		t.Error("Expected default logger for a bare context")
	}
}
