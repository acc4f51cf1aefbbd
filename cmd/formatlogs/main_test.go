package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatLine(t *testing.T) {
	line := `{"level":"error","timestamp":"2024-03-01T12:00:00.000Z","caller":"dispatch/dispatcher.go:200","message":"mutation failed","service":"keydash","action":"keys_revoked","targets":["key_a","key_b"],"error":"key not found"}`
	got, ok := formatLine(line, formatOptions{minLevel: "debug"})
	if !ok {
		t.Fatal("line should be kept")
	}
	for _, want := range []string{"ERROR", "mutation failed", "action=keys_revoked", "targets=[key_a,key_b]", `error="key not found"`} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "dispatcher.go") {
		t.Errorf("caller should be omitted by default: %q", got)
	}
}

func TestFormatLine_Filters(t *testing.T) {
	debug := `{"level":"debug","message":"keys loaded","count":4}`
	if _, ok := formatLine(debug, formatOptions{minLevel: "info"}); ok {
		t.Error("debug line should be dropped at info level")
	}
	info := `{"level":"info","message":"member_removed","audit":true}`
	if _, ok := formatLine(info, formatOptions{minLevel: "debug", auditOnly: true}); !ok {
		t.Error("audit line should be kept")
	}
	if _, ok := formatLine(debug, formatOptions{minLevel: "debug", auditOnly: true}); ok {
		t.Error("non-audit line should be dropped")
	}
	if got, ok := formatLine("plain console text", formatOptions{minLevel: "debug"}); !ok || got != "plain console text" {
		t.Errorf("non-JSON line should pass through, got %q %v", got, ok)
	}
}

func TestFormatStream(t *testing.T) {
	in := strings.NewReader("{\"level\":\"info\",\"message\":\"a\"}\n\n{\"level\":\"info\",\"message\":\"b\"}\n")
	var out bytes.Buffer
	if err := formatStream(in, &out, formatOptions{minLevel: "debug"}); err != nil {
		t.Fatalf("formatStream: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
}
