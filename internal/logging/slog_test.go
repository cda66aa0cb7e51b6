package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithService(t *testing.T) {
	logger := slog.Default()
	result := WithService(logger, "gmail")
	if result == nil {
		t.Error("WithService returned nil")
	}
}

func TestStringAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("gmail.fetch"), KeyOperation, "gmail.fetch"},
		{"message id", MessageID("a1"), KeyMessageID, "a1"},
		{"thread id", ThreadID("t1"), KeyThreadID, "t1"},
		{"query", Query("label:inbox AND is:unread"), KeyQuery, "label:inbox AND is:unread"},
		{"status", Status("skipped"), KeyStatus, "skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestCountAttr(t *testing.T) {
	attr := Count(3)
	if attr.Key != KeyCount {
		t.Errorf("Count key = %q, want %q", attr.Key, KeyCount)
	}
	if attr.Value.Int64() != 3 {
		t.Errorf("Count value = %d, want 3", attr.Value.Int64())
	}
}

func TestLabelsAttr(t *testing.T) {
	attr := Labels([]string{"IMPORTANT"})
	if attr.Key != KeyLabels {
		t.Errorf("Labels key = %q, want %q", attr.Key, KeyLabels)
	}
	got, ok := attr.Value.Any().([]string)
	if !ok || len(got) != 1 || got[0] != "IMPORTANT" {
		t.Errorf("Labels value = %v, want [IMPORTANT]", attr.Value.Any())
	}
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// nil error yields an empty group that slog omits
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "<empty>"},
		{"ya29.abc", "[token:8 chars]"},
	}

	for _, tt := range tests {
		if got := SanitizeToken(tt.token); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
