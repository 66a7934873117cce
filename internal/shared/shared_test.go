package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestNewLogger(t *testing.T) {
	t.Run("Writes To Given Writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		logger.Info("test message", "key", "value")

		out := buf.String()
		if !strings.Contains(out, "test message") {
			t.Errorf("expected log output to contain message, got %s", out)
		}
		if !strings.Contains(out, "key") {
			t.Errorf("expected log output to contain key, got %s", out)
		}
	})

	t.Run("Nil Writer Defaults To Stderr", func(t *testing.T) {
		if logger := NewLogger(nil); logger == nil {
			t.Fatal("expected logger to be created")
		}
	})
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	child := WithLogger(logger, "component", "test")
	child.Info("hello")

	if !strings.Contains(buf.String(), "component") {
		t.Errorf("expected child logger to carry fields, got %s", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	SetLogLevel(logger, log.ErrorLevel)
	logger.Info("suppressed")
	logger.Error("visible")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info message should be suppressed at error level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("error message should be logged at error level")
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected valid UUID, got %s: %v", id, err)
	}

	if GenerateID() == id {
		t.Error("expected IDs to be unique")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	if _, err := uuid.Parse(state); err != nil {
		t.Errorf("expected valid state token, got %s: %v", state, err)
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	if other == state {
		t.Error("expected state tokens to be unique")
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]string{"key": "value"}

	t.Run("Compact", func(t *testing.T) {
		out, err := MarshalJSON(data, false)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if string(out) != `{"key":"value"}` {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("Pretty", func(t *testing.T) {
		out, err := MarshalJSON(data, true)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if !strings.Contains(string(out), "\n") {
			t.Errorf("expected indented output, got %s", out)
		}
	})
}
