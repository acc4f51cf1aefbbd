package main

import (
	"strings"
	"testing"
	"time"
)

const sample = `{"session_id":"s1","user_id":"user_demo","timestamp":"2024-03-01T12:00:00Z","event":"keys_revoked","targets":["key_a"],"outcome":"success","elapsed_ms":120}
not json
{"session_id":"s1","user_id":"user_demo","timestamp":"2024-03-01T12:05:00Z","event":"keys_revoked","targets":["key_b","key_c"],"outcome":"error","error":"key not found","elapsed_ms":80}
{"session_id":"s2","user_id":"user_ada","timestamp":"2024-03-01T11:00:00Z","event":"role_changed","targets":["user_grace"],"outcome":"success","elapsed_ms":40}
`

func TestParseAuditAndReport(t *testing.T) {
	events, skipped, err := parseAudit(strings.NewReader(sample), time.Time{})
	if err != nil {
		t.Fatalf("parseAudit: %v", err)
	}
	if skipped != 1 || len(events) != 3 {
		t.Fatalf("events=%d skipped=%d", len(events), skipped)
	}

	report := buildReport("audit.ndjson", events)
	if report.Sessions != 2 || len(report.Users) != 2 || report.Users[0] != "user_ada" {
		t.Errorf("unexpected sessions/users: %+v", report)
	}
	if len(report.Actions) != 2 || report.Actions[0].Event != "keys_revoked" {
		t.Fatalf("unexpected actions: %+v", report.Actions)
	}
	keys := report.Actions[0]
	if keys.Count != 2 || keys.Succeeded != 1 || keys.Failed != 1 || keys.Targets != 3 {
		t.Errorf("unexpected aggregate: %+v", keys)
	}
	if keys.LatencyMedian != 100 || keys.Errors["key not found"] != 1 {
		t.Errorf("unexpected latency/errors: %+v", keys)
	}
}

func TestParseAudit_Cutoff(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)
	events, _, err := parseAudit(strings.NewReader(sample), cutoff)
	if err != nil {
		t.Fatalf("parseAudit: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events after cutoff, got %d", len(events))
	}
}

func TestComputeMedian(t *testing.T) {
	if got := computeMedian([]int64{5, 1, 3}); got != 3 {
		t.Errorf("odd median = %v", got)
	}
	if got := computeMedian(nil); got != 0 {
		t.Errorf("empty median = %v", got)
	}
}
