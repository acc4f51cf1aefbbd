package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("keydash", "production", &buf)
	l.Debugw("hidden")
	l.Errorw("mutation failed", "action", "keys_revoked")
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["service"] != "keydash" || entry["action"] != "keys_revoked" || entry["level"] != "error" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_DevelopmentIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New("keydash", "development", &buf)
	l.WithFields(map[string]interface{}{"screen": "keys"}).Debugw("loaded")
	_ = l.Sync()
	if !strings.Contains(buf.String(), "loaded") || !strings.Contains(buf.String(), "keys") {
		t.Errorf("debug line missing: %q", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keydash.log")
	l, closeFn, err := NewFile("keydash", "production", path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	l.Audit("invite_sent", "email", "a@example.com")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"audit":true`) {
		t.Errorf("audit marker missing: %s", data)
	}
}
