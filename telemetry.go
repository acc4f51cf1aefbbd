package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// telemetryEvent is one line of the audit trail: a finished row action and
// how it went.
type telemetryEvent struct {
	SessionID      string            `json:"session_id"`
	UserID         string            `json:"user_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Event          string            `json:"event"`
	Screen         string            `json:"screen,omitempty"`
	Targets        []string          `json:"targets,omitempty"`
	Outcome        string            `json:"outcome,omitempty"`
	Error          string            `json:"error,omitempty"`
	ElapsedMS      int64             `json:"elapsed_ms,omitempty"`
	ExtraJSON      map[string]string `json:"extra_json,omitempty"`
}

type telemetryLogger struct {
	path           string
	sessionID      string
	userID         string
	organizationID string
	mu             sync.Mutex
}

func newTelemetryLogger(path, sessionID, userID, organizationID string) *telemetryLogger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &telemetryLogger{
		path:           path,
		sessionID:      strings.TrimSpace(sessionID),
		userID:         strings.TrimSpace(userID),
		organizationID: strings.TrimSpace(organizationID),
	}
}

func (t *telemetryLogger) Emit(event telemetryEvent) {
	if t == nil || strings.TrimSpace(event.Event) == "" {
		return
	}
	if event.SessionID == "" {
		event.SessionID = t.sessionID
	}
	if strings.TrimSpace(event.UserID) == "" {
		event.UserID = t.userID
	}
	if event.OrganizationID == "" {
		event.OrganizationID = t.organizationID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(event.ExtraJSON) == 0 {
		event.ExtraJSON = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(data)
}

func newTelemetrySessionID() string {
	return uuid.NewString()
}

// resolveTelemetryUserID falls back to the OS user when the session has no
// subject, which only happens for misconfigured local runs.
func resolveTelemetryUserID(sessionUserID string) string {
	candidates := []string{
		sessionUserID,
		os.Getenv("KEYDASH_AUDIT_USER_ID"),
		os.Getenv("USER"),
		os.Getenv("USERNAME"),
	}
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
