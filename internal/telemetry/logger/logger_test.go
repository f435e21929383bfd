package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("hello", "guild", uint64(42))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["guild"] != float64(42) {
		t.Errorf("guild = %v, want 42", entry["guild"])
	}
}

func TestNewTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("started")
	if !strings.Contains(buf.String(), "msg=started") {
		t.Errorf("text output missing message: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("quiet")
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("below-level output written: %s", buf.String())
	}

	l.Warn("loud")
	if buf.Len() == 0 {
		t.Error("warn output suppressed")
	}

	SetLevel("info")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	SetLevel("error")
	if GetLevel() != "error" {
		t.Errorf("GetLevel() = %q, want error", GetLevel())
	}
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info written at error level: %s", buf.String())
	}

	SetLevel("info")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.With("component", "tracker").Info("ready")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["component"] != "tracker" {
		t.Errorf("component = %v, want tracker", entry["component"])
	}
}
