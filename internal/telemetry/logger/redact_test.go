package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestRedaction(t *testing.T) {
	tests := []struct {
		key      string
		redacted bool
	}{
		{"token", true},
		{"discord_token", true},
		{"encryption_key", true},
		{"secret", true},
		{"authorization", true},
		{"guild", false},
		{"path", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			l.Info("test", tt.key, "hunter2-value")

			leaked := strings.Contains(buf.String(), "hunter2-value")
			if tt.redacted && leaked {
				t.Errorf("key %q leaked its value: %s", tt.key, buf.String())
			}
			if !tt.redacted && !leaked {
				t.Errorf("key %q was redacted but should not be: %s", tt.key, buf.String())
			}
			if tt.redacted && !strings.Contains(buf.String(), redactedValue) {
				t.Errorf("key %q missing redaction placeholder: %s", tt.key, buf.String())
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if !IsSensitiveKey("Bot-Token") {
		t.Error("Bot-Token should be sensitive")
	}
	if IsSensitiveKey("interval") {
		t.Error("interval should not be sensitive")
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("abc"); got != "***" {
		t.Errorf("MaskToken(short) = %q, want ***", got)
	}
	got := MaskToken("NzkyNzE1NDU0MTk2MDg4ODQy.secret.part")
	if !strings.HasPrefix(got, "Nzk") || !strings.HasSuffix(got, "art") {
		t.Errorf("MaskToken = %q, want first/last 3 kept", got)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("MaskToken leaked middle: %q", got)
	}
}
